package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
	"github.com/marginalia-app/marginalia-server/internal/normalize"
	"github.com/marginalia-app/marginalia-server/internal/store"
)

// defaultSuggestionTTL is how long a ranking query result stays served from
// memory before the store is asked again.
const defaultSuggestionTTL = 30 * time.Second

// cacheEntry is one cached ranking result. The key records which query
// produced it so a stale entry can never answer a different question.
type cacheEntry struct {
	key       string
	data      any
	fetchedAt time.Time
}

func (e *cacheEntry) isFresh(now time.Time, ttl time.Duration) bool {
	return e != nil && now.Sub(e.fetchedAt) < ttl
}

// SuggestionService serves tag ranking and autocomplete queries with a small
// TTL cache in front of the store. Rankings scan every link row, and the tag
// picker fires them on each keystroke, so the cache absorbs the burst while
// staying honest within a TTL.
type SuggestionService struct {
	store  store.Store
	logger *slog.Logger

	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

// NewSuggestionService creates a new suggestion service. A non-positive ttl
// falls back to the default.
func NewSuggestionService(st store.Store, ttl time.Duration, logger *slog.Logger) *SuggestionService {
	if ttl <= 0 {
		ttl = defaultSuggestionTTL
	}
	return &SuggestionService{
		store:  st,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
		cache:  map[string]*cacheEntry{},
	}
}

// MostUsed returns tags ranked by how many highlights carry them.
func (s *SuggestionService) MostUsed(ctx context.Context, limit int) ([]domain.TagUsage, error) {
	key := fmt.Sprintf("most-used:%d", limit)
	if cached, ok := s.lookup(key); ok {
		return cached.([]domain.TagUsage), nil
	}

	usages, err := s.store.MostUsedTags(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.put(key, usages)
	return usages, nil
}

// RecentlyUsed returns tags ranked by when they were last attached.
func (s *SuggestionService) RecentlyUsed(ctx context.Context, limit int) ([]domain.TagRecency, error) {
	key := fmt.Sprintf("recently-used:%d", limit)
	if cached, ok := s.lookup(key); ok {
		return cached.([]domain.TagRecency), nil
	}

	recents, err := s.store.RecentlyUsedTags(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.put(key, recents)
	return recents, nil
}

// Suggest returns tag names matching the query prefix or substring, for the
// autocomplete picker. The query is folded before keying the cache so "PHY"
// and "phy" share an entry.
func (s *SuggestionService) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	key := fmt.Sprintf("search:%s:%d", normalize.Fold(query), limit)
	if cached, ok := s.lookup(key); ok {
		return cached.([]string), nil
	}

	names, err := s.store.SearchTags(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	s.put(key, names)
	return names, nil
}

// Invalidate drops every cached ranking. Called after writes that change
// link rows, so rankings never serve a deleted tag for a full TTL.
func (s *SuggestionService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) > 0 {
		s.cache = map[string]*cacheEntry{}
		s.logger.Debug("suggestion cache invalidated")
	}
}

func (s *SuggestionService) lookup(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.cache[key]
	if !entry.isFresh(s.now(), s.ttl) {
		return nil, false
	}
	return entry.data, true
}

func (s *SuggestionService) put(key string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = &cacheEntry{key: key, data: data, fetchedAt: s.now()}
}
