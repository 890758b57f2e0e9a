package usecase

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/adargal/pelles/internal/domain"
)

// Warnings attached outside the matcher
const (
	warningNoMatch       = "No match found"
	warningAuthRequired  = "Store requires operator attention"
	warningUserSelection = "User selected"
)

// ComparisonConfig holds configuration for the comparison service
type ComparisonConfig struct {
	MinCoverage float64 // Minimum matched fraction for a store to be recommendable
}

// ComparisonService drives the matcher across all (item, store) pairs,
// aggregates per-store summaries, and selects a recommended store.
type ComparisonService struct {
	search      *SearchService
	matcher     *MatcherService
	sessions    domain.SessionStore
	minCoverage float64
}

// NewComparisonService creates a comparison service with dependencies.
func NewComparisonService(
	search *SearchService,
	matcher *MatcherService,
	sessions domain.SessionStore,
	config ComparisonConfig,
) *ComparisonService {
	minCoverage := config.MinCoverage
	if minCoverage <= 0 {
		minCoverage = 0.70
	}
	return &ComparisonService{
		search:      search,
		matcher:     matcher,
		sessions:    sessions,
		minCoverage: minCoverage,
	}
}

// Compare prices for a list of items across all configured stores. The
// result is stored under a fresh comparison id so the user can override
// individual picks later.
func (s *ComparisonService) Compare(ctx context.Context, items []string) (*domain.Comparison, error) {
	if len(items) == 0 {
		return nil, domain.ErrNoItems
	}

	comparisonID := uuid.NewString()[:8]
	stores := s.search.Stores()

	itemMatches := make([]domain.ItemMatch, 0, len(items))
	for _, itemQuery := range items {
		log.Info().Str("item", itemQuery).Msg("processing item")

		allResults := s.search.SearchAllStores(ctx, itemQuery)

		matches := make(map[string]domain.StoreMatch, len(stores))
		for _, store := range stores {
			matches[store.ID] = s.buildStoreMatch(itemQuery, allResults[store.ID])
		}
		itemMatches = append(itemMatches, domain.ItemMatch{Query: itemQuery, Matches: matches})
	}

	summaries := s.summarize(itemMatches, stores)
	s.recommend(summaries, len(items))

	comparison := &domain.Comparison{
		ComparisonID: comparisonID,
		Stores:       summaries,
		Items:        itemMatches,
	}

	if err := s.sessions.Put(ctx, comparisonID, comparison); err != nil {
		// Session loss only disables later overrides for this comparison
		log.Warn().Err(err).Str("comparison_id", comparisonID).Msg("failed to store comparison session")
	}

	return comparison, nil
}

// buildStoreMatch turns one store's search result into a StoreMatch.
func (s *ComparisonService) buildStoreMatch(query string, result StoreSearchResult) domain.StoreMatch {
	if result.Err != nil {
		return domain.StoreMatch{
			Alternatives: []domain.Candidate{},
			Warning:      warningAuthRequired,
			MatchScore:   0.0,
		}
	}

	match := s.matcher.FindBestMatch(query, result.Candidates)
	if match == nil {
		return domain.StoreMatch{
			Alternatives: []domain.Candidate{},
			Warning:      warningNoMatch,
			MatchScore:   0.0,
		}
	}

	product := match.Product
	return domain.StoreMatch{
		Product:      &product,
		Confidence:   match.Confidence,
		Alternatives: match.Alternatives,
		Warning:      match.Warning,
		MatchScore:   match.Score,
	}
}

// Override swaps the chosen product for an item-store pair with one of its
// alternatives, then re-aggregates summaries and the recommendation.
// Returns ErrComparisonNotFound for an unknown or expired comparison id.
// An unknown item, store, or product id leaves the session unchanged.
func (s *ComparisonService) Override(
	ctx context.Context,
	comparisonID, itemQuery, storeID, productID string,
) (*domain.Comparison, error) {
	stores := s.search.Stores()

	return s.sessions.Update(ctx, comparisonID, func(c *domain.Comparison) {
		applyOverride(c, itemQuery, storeID, productID)

		c.Stores = s.summarize(c.Items, stores)
		s.recommend(c.Stores, len(c.Items))
	})
}

// applyOverride performs the swap in place; a no-op when the item, store,
// or product cannot be located.
func applyOverride(c *domain.Comparison, itemQuery, storeID, productID string) {
	for i := range c.Items {
		if c.Items[i].Query != itemQuery {
			continue
		}

		sm, ok := c.Items[i].Matches[storeID]
		if !ok {
			return
		}

		altIndex := -1
		for j, alt := range sm.Alternatives {
			if alt.ID == productID {
				altIndex = j
				break
			}
		}
		if altIndex < 0 {
			return
		}

		chosen := sm.Alternatives[altIndex]

		// Previous pick moves to the front of the alternatives
		alternatives := make([]domain.Candidate, 0, len(sm.Alternatives))
		if sm.Product != nil {
			alternatives = append(alternatives, *sm.Product)
		}
		for j, alt := range sm.Alternatives {
			if j != altIndex {
				alternatives = append(alternatives, alt)
			}
		}
		if len(alternatives) > maxAlternatives {
			alternatives = alternatives[:maxAlternatives]
		}

		sm.Product = &chosen
		sm.Alternatives = alternatives
		sm.Confidence = domain.ConfidenceHigh
		sm.Warning = warningUserSelection
		sm.MatchScore = 1.0

		c.Items[i].Matches[storeID] = sm
		return
	}
}

// summarize recomputes per-store summary statistics from scratch, in
// configured store order.
func (s *ComparisonService) summarize(items []domain.ItemMatch, stores []domain.Store) []domain.StoreSummary {
	summaries := make([]domain.StoreSummary, 0, len(stores))

	for _, store := range stores {
		var (
			totalPrice   float64
			matchedCount int
			missingCount int
			warnedCount  int
			oldestFetch  *time.Time
		)

		for _, item := range items {
			sm, ok := item.Matches[store.ID]
			if !ok || sm.Product == nil {
				missingCount++
				continue
			}

			totalPrice += sm.Product.Price
			matchedCount++
			if sm.Warning != "" {
				warnedCount++
			}

			fetchedAt := sm.Product.FetchedAt
			if oldestFetch == nil || fetchedAt.Before(*oldestFetch) {
				oldestFetch = &fetchedAt
			}
		}

		summaries = append(summaries, domain.StoreSummary{
			StoreID:      store.ID,
			StoreName:    store.Name,
			TotalPrice:   math.Round(totalPrice*100) / 100,
			MatchedCount: matchedCount,
			MissingCount: missingCount,
			WarnedCount:  warnedCount,
			AsOf:         oldestFetch,
		})
	}

	return summaries
}

// recommend marks the cheapest store among those covering enough of the
// item list. First store in configured order wins a price tie. With no
// eligible store nothing is marked; that is a normal outcome, not an error.
func (s *ComparisonService) recommend(summaries []domain.StoreSummary, totalItems int) {
	cheapest := -1
	for i := range summaries {
		summaries[i].IsRecommended = false

		if totalItems == 0 {
			continue
		}
		coverage := float64(summaries[i].MatchedCount) / float64(totalItems)
		if coverage < s.minCoverage {
			continue
		}
		if cheapest < 0 || summaries[i].TotalPrice < summaries[cheapest].TotalPrice {
			cheapest = i
		}
	}

	if cheapest < 0 {
		log.Info().Msg("no store meets minimum coverage threshold for recommendation")
		return
	}
	summaries[cheapest].IsRecommended = true
}
