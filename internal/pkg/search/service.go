package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/clipscout/clipscout/internal/pkg/cache"
)

// Index is the caption-index surface the service consumes.
type Index interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, int, error)
}

// StatsProvider enriches results with video statistics.
type StatsProvider interface {
	EnrichStatistics(ctx context.Context, results []Result) error
}

// CacheStore is the small cache surface the service needs; backed by the
// redis cache package in production.
type CacheStore interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
}

type redisCacheStore struct{}

func (redisCacheStore) Get(key string) (string, error) { return cache.Get(key) }
func (redisCacheStore) Set(key string, value interface{}, expiration time.Duration) error {
	return cache.Set(key, value, expiration)
}

// resultCacheTTL keeps double-submits from burning upstream calls without
// serving stale mentions for long.
const resultCacheTTL = 5 * time.Minute

// Service coordinates one search: cache lookup, caption-index query, and
// best-effort statistics enrichment. It knows nothing about entitlements or
// quotas; the serving path sequences those around it.
type Service struct {
	index Index
	stats StatsProvider
	cache CacheStore
}

// NewService creates a search service from its upstream dependencies. stats
// and cacheStore may be nil to disable enrichment/caching.
func NewService(index Index, stats StatsProvider, cacheStore CacheStore) *Service {
	return &Service{index: index, stats: stats, cache: cacheStore}
}

// NewServiceFromEnv wires the production clients and the redis cache.
func NewServiceFromEnv() *Service {
	return NewService(NewFilmotClientFromEnv(), NewYouTubeClientFromEnv(), redisCacheStore{})
}

// Search runs the query against the caption index. A non-nil error means the
// upstream call failed and the caller must not consume quota.
func (s *Service) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	key := cacheKey(query, opts)

	if s.cache != nil {
		if raw, err := s.cache.Get(key); err == nil && raw != "" {
			var cached Response
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	results, total, err := s.index.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	if s.stats != nil && len(results) > 0 {
		if err := s.stats.EnrichStatistics(ctx, results); err != nil {
			// Statistics are cosmetic; the hit list is still served.
			log.Printf("search: statistics enrichment failed: %v", err)
		}
	}

	resp := &Response{Results: results, TotalCount: total}

	if s.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(key, string(raw), resultCacheTTL); err != nil {
				log.Printf("search: result cache write failed: %v", err)
			}
		}
	}
	return resp, nil
}

// Truncate caps a response for free-tier callers. A negative cap means
// unlimited and returns the response unchanged.
func Truncate(resp *Response, limit int) *Response {
	if limit < 0 || len(resp.Results) <= limit {
		return resp
	}
	return &Response{
		Results:    resp.Results[:limit],
		TotalCount: resp.TotalCount,
		Truncated:  true,
	}
}

func cacheKey(query string, opts Options) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	h.Write([]byte{0})
	h.Write([]byte(opts.Language))
	h.Write([]byte{0})
	h.Write([]byte(opts.ChannelID))
	return "search:result:" + hex.EncodeToString(h.Sum(nil))
}
