// Package knowledge retrieves coaching guideline text to ground prompts.
//
// Documents are chunked and stored in a bleve full-text index. A retriever
// returns the best matching chunks as "[title] text" blocks. Retrieval never
// fails: errors are logged and yield empty evidence, so generation proceeds
// without grounding.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/rs/zerolog/log"
)

// DefaultBudget is the number of chunks returned when the caller passes 0.
const DefaultBudget = 4

// Fields stored for every indexed chunk.
const (
	fieldTitle  = "title"
	fieldText   = "text"
	fieldSource = "source"
	fieldTags   = "tags"
)

// OpenIndex opens the bleve index at path, creating it when it does not
// exist. An empty path gives an in-memory index.
func OpenIndex(path string) (bleve.Index, error) {
	mapping := bleve.NewIndexMapping()
	if path == "" {
		return bleve.NewMemOnly(mapping)
	}
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open knowledge index %s: %w", path, err)
		}
		return idx, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat knowledge index %s: %w", path, err)
	}
	idx, err := bleve.New(path, mapping)
	if err != nil {
		return nil, fmt.Errorf("create knowledge index %s: %w", path, err)
	}
	return idx, nil
}

// IndexRetriever answers queries from a bleve index.
type IndexRetriever struct {
	index bleve.Index
}

// NewIndexRetriever creates a retriever over idx.
func NewIndexRetriever(idx bleve.Index) *IndexRetriever {
	return &IndexRetriever{index: idx}
}

// Retrieve returns up to budget matching chunks, best first, separated by
// blank lines. A failed search yields "".
func (r *IndexRetriever) Retrieve(ctx context.Context, query string, budget int) string {
	evidence, err := r.Search(ctx, query, budget)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Knowledge search failed, continuing without evidence")
		return ""
	}
	return evidence
}

// Search is Retrieve that reports search failures.
func (r *IndexRetriever) Search(ctx context.Context, query string, budget int) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" || r.index == nil {
		return "", nil
	}
	if budget <= 0 {
		budget = DefaultBudget
	}

	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, budget, 0, false)
	req.Fields = []string{fieldTitle, fieldText}

	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return "", err
	}

	blocks := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		text, _ := hit.Fields[fieldText].(string)
		if strings.TrimSpace(text) == "" {
			continue
		}
		title, _ := hit.Fields[fieldTitle].(string)
		if title == "" {
			title = hit.ID
		}
		blocks = append(blocks, fmt.Sprintf("[%s] %s", title, text))
	}

	log.Debug().
		Str("query", query).
		Int("hits", len(blocks)).
		Uint64("total", res.Total).
		Msg("Knowledge retrieved")
	return strings.Join(blocks, "\n\n"), nil
}

// Noop is the retriever used when no knowledge base is configured.
type Noop struct{}

func (Noop) Retrieve(context.Context, string, int) string { return "" }
