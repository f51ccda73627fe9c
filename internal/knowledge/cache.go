package knowledge

import (
	"context"
	"strconv"
	"time"

	"github.com/coachkit/coachplane/pkg/contracts"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// Searcher is a retriever that reports failed searches instead of
// returning empty evidence.
type Searcher interface {
	Search(ctx context.Context, query string, budget int) (string, error)
}

// CachedRetriever memoizes another retriever's evidence per query and
// budget for a bounded time.
type CachedRetriever struct {
	inner contracts.KnowledgeRetriever
	cache *expirable.LRU[string, string]
}

// NewCachedRetriever wraps inner with an LRU of size entries, each kept
// for ttl.
func NewCachedRetriever(inner contracts.KnowledgeRetriever, size int, ttl time.Duration) *CachedRetriever {
	if size <= 0 {
		size = 256
	}
	return &CachedRetriever{
		inner: inner,
		cache: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *CachedRetriever) Retrieve(ctx context.Context, query string, budget int) string {
	key := query + "|" + strconv.Itoa(budget)
	if evidence, ok := c.cache.Get(key); ok {
		return evidence
	}

	evidence, ok := c.fetch(ctx, query, budget)
	// failed and canceled searches return "" which must not be remembered
	if ok && ctx.Err() == nil {
		c.cache.Add(key, evidence)
	}
	return evidence
}

func (c *CachedRetriever) fetch(ctx context.Context, query string, budget int) (string, bool) {
	s, ok := c.inner.(Searcher)
	if !ok {
		return c.inner.Retrieve(ctx, query, budget), true
	}
	evidence, err := s.Search(ctx, query, budget)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Knowledge search failed, continuing without evidence")
		return "", false
	}
	return evidence, true
}

// Len returns the number of cached entries.
func (c *CachedRetriever) Len() int { return c.cache.Len() }
