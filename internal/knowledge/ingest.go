package knowledge

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Document is one guideline document in a knowledge source file.
type Document struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Source  string   `yaml:"source,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
	Content string   `yaml:"content"`
}

// SourceFile is the YAML layout of a knowledge source:
//
//	documents:
//	  - id: eiwitbehoefte
//	    title: Eiwitbehoefte bij krachttraining
//	    tags: [voeding]
//	    content: |
//	      ...
type SourceFile struct {
	Documents []Document `yaml:"documents"`
}

// LoadSource reads and validates a YAML knowledge source.
func LoadSource(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge source: %w", err)
	}
	var file SourceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse knowledge source %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Documents))
	for i, doc := range file.Documents {
		if doc.ID == "" {
			return nil, fmt.Errorf("knowledge source %s: document %d has no id", path, i)
		}
		if seen[doc.ID] {
			return nil, fmt.Errorf("knowledge source %s: duplicate document id %q", path, doc.ID)
		}
		seen[doc.ID] = true
	}
	return file.Documents, nil
}

// IngestResult summarises an ingestion run.
type IngestResult struct {
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Ingester splits documents into chunks and writes them to the index.
type Ingester struct {
	index   bleve.Index
	chunker ChunkerConfig
}

// NewIngester creates an ingester writing to idx.
func NewIngester(idx bleve.Index, chunker ChunkerConfig) *Ingester {
	return &Ingester{index: idx, chunker: chunker}
}

// Ingest indexes docs. Chunk ids are "<doc id>#<n>", so ingesting the same
// source twice leaves the index unchanged.
func (ing *Ingester) Ingest(ctx context.Context, docs []Document) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{}

	batch := ing.index.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks := ChunkText(doc.Content, ing.chunker)
		for n, text := range chunks {
			id := fmt.Sprintf("%s#%d", doc.ID, n)
			fields := map[string]interface{}{
				fieldTitle:  doc.Title,
				fieldText:   text,
				fieldSource: doc.Source,
				fieldTags:   strings.Join(doc.Tags, " "),
			}
			if err := batch.Index(id, fields); err != nil {
				return nil, fmt.Errorf("index chunk %s: %w", id, err)
			}
			result.Chunks++
		}
		result.Documents++
	}

	if err := ing.index.Batch(batch); err != nil {
		return nil, fmt.Errorf("write knowledge batch: %w", err)
	}

	result.Elapsed = time.Since(start)
	log.Info().
		Int("documents", result.Documents).
		Int("chunks", result.Chunks).
		Dur("elapsed", result.Elapsed).
		Msg("Knowledge ingestion complete")
	return result, nil
}

// IngestFile loads a YAML source and ingests it.
func (ing *Ingester) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	docs, err := LoadSource(path)
	if err != nil {
		return nil, err
	}
	return ing.Ingest(ctx, docs)
}
