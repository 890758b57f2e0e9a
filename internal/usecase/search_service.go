package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/adargal/pelles/internal/domain"
)

// SearchConfig holds configuration for the search service
type SearchConfig struct {
	ScraperDelay   time.Duration // Minimum spacing between scrapes of one store
	ScraperTimeout time.Duration // Deadline for a single store search
	MaxResults     int           // Cap on candidates kept per store
}

// StoreSearchResult is the outcome of searching one store. Err is set only
// for the distinguished auth-required condition; ordinary failures degrade
// to an empty candidate list.
type StoreSearchResult struct {
	Candidates []domain.Candidate
	Err        error
}

// SearchService searches stores for product candidates, consulting the
// result cache before falling back to a live scraper. Per-store failures
// never abort a multi-store search.
type SearchService struct {
	cache      domain.SearchCache
	scrapers   map[string]domain.Scraper
	stores     []domain.Store // configured order
	limiters   map[string]*rate.Limiter
	timeout    time.Duration
	maxResults int
}

// NewSearchService creates a search service over the given scrapers.
// Store order follows the scraper slice, which follows configuration.
func NewSearchService(cache domain.SearchCache, scrapers []domain.Scraper, config SearchConfig) *SearchService {
	delay := config.ScraperDelay
	if delay <= 0 {
		delay = 1500 * time.Millisecond
	}
	timeout := config.ScraperTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	byID := make(map[string]domain.Scraper, len(scrapers))
	limiters := make(map[string]*rate.Limiter, len(scrapers))
	stores := make([]domain.Store, 0, len(scrapers))
	for _, scraper := range scrapers {
		byID[scraper.StoreID()] = scraper
		limiters[scraper.StoreID()] = rate.NewLimiter(rate.Every(delay), 1)
		stores = append(stores, domain.Store{ID: scraper.StoreID(), Name: scraper.StoreName()})
	}

	return &SearchService{
		cache:      cache,
		scrapers:   byID,
		stores:     stores,
		limiters:   limiters,
		timeout:    timeout,
		maxResults: maxResults,
	}
}

// Stores returns the configured stores in registry order.
func (s *SearchService) Stores() []domain.Store {
	out := make([]domain.Store, len(s.stores))
	copy(out, s.stores)
	return out
}

// StoreIDs returns the configured store ids in registry order.
func (s *SearchService) StoreIDs() []string {
	ids := make([]string, len(s.stores))
	for i, store := range s.stores {
		ids[i] = store.ID
	}
	return ids
}

// StoreName returns the display name for a store id, falling back to the
// id itself for unknown stores.
func (s *SearchService) StoreName(storeID string) string {
	if scraper, ok := s.scrapers[storeID]; ok {
		return scraper.StoreName()
	}
	return storeID
}

// Search looks up candidates for a query in one store.
// Flow: check cache -> rate-limited scrape -> cache result.
// Ordinary scrape failures return an empty list, not an error;
// ErrAuthRequired is passed through so the caller can flag the store.
func (s *SearchService) Search(ctx context.Context, query, storeID string) ([]domain.Candidate, error) {
	normalizedQuery := NormalizeHebrew(query)

	cached, err := s.cache.Get(ctx, storeID, normalizedQuery)
	if err == nil {
		log.Debug().Str("store", storeID).Str("query", normalizedQuery).Msg("search cache hit")
		return cached, nil
	}

	scraper, ok := s.scrapers[storeID]
	if !ok {
		log.Error().Str("store", storeID).Msg("unknown store")
		return nil, domain.ErrUnknownStore
	}

	if err := s.limiters[storeID].Wait(ctx); err != nil {
		return []domain.Candidate{}, nil
	}

	scrapeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := scraper.Search(scrapeCtx, query)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRequired) {
			log.Warn().Str("store", storeID).Str("query", query).Msg("store requires operator attention")
			return nil, err
		}
		log.Error().Err(err).Str("store", storeID).Str("query", query).Msg("search failed")
		return []domain.Candidate{}, nil
	}

	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}

	if err := s.cache.Put(ctx, storeID, normalizedQuery, results); err != nil {
		// A failed cache write only costs a future scrape
		log.Warn().Err(err).Str("store", storeID).Msg("failed to cache search results")
	}

	return results, nil
}

// SearchAllStores searches every configured store concurrently.
// Returns a result for every store id; ordering concerns stay with the
// caller, who iterates the registry order.
func (s *SearchService) SearchAllStores(ctx context.Context, query string) map[string]StoreSearchResult {
	results := make([]StoreSearchResult, len(s.stores))

	var wg sync.WaitGroup
	for i, store := range s.stores {
		wg.Add(1)
		go func(i int, storeID string) {
			defer wg.Done()
			candidates, err := s.Search(ctx, query, storeID)
			if err != nil && !errors.Is(err, domain.ErrAuthRequired) {
				candidates, err = []domain.Candidate{}, nil
			}
			results[i] = StoreSearchResult{Candidates: candidates, Err: err}
		}(i, store.ID)
	}
	wg.Wait()

	out := make(map[string]StoreSearchResult, len(s.stores))
	for i, store := range s.stores {
		out[store.ID] = results[i]
	}
	return out
}

// ClearCache removes cached search results. An empty storeID clears all
// stores. Returns the number of entries removed.
func (s *SearchService) ClearCache(ctx context.Context, storeID string) (int64, error) {
	return s.cache.Clear(ctx, storeID)
}
