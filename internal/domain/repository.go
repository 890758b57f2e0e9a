package domain

import "context"

// SearchCache defines the interface for caching store search results,
// keyed by (store id, normalized query).
type SearchCache interface {
	// Get returns the cached candidates for the key, or ErrCacheMiss if the
	// entry is absent, expired, or unreadable.
	Get(ctx context.Context, storeID, normalizedQuery string) ([]Candidate, error)

	// Put replaces any existing entry for the key (upsert, not append).
	Put(ctx context.Context, storeID, normalizedQuery string, candidates []Candidate) error

	// Clear removes cached entries. An empty storeID clears every store.
	// Returns the number of entries removed.
	Clear(ctx context.Context, storeID string) (int64, error)
}

// SessionStore defines the interface for persisting comparison sessions so
// a later override can locate and mutate them.
type SessionStore interface {
	// Get returns a snapshot of the session, or ErrComparisonNotFound.
	Get(ctx context.Context, comparisonID string) (*Comparison, error)

	// Put stores the session under its comparison id.
	Put(ctx context.Context, comparisonID string, comparison *Comparison) error

	// Update applies fn to the stored session while holding that session's
	// lock, so concurrent overrides on the same id cannot lose writes.
	// Returns a snapshot of the updated session, or ErrComparisonNotFound.
	Update(ctx context.Context, comparisonID string, fn func(*Comparison)) (*Comparison, error)

	// Remove deletes the session if present.
	Remove(ctx context.Context, comparisonID string)
}

// Scraper defines the interface for fetching live product candidates from
// one store's website. Implementations must return ErrAuthRequired when the
// store demands a login or challenge, and plain errors for everything else.
type Scraper interface {
	StoreID() string
	StoreName() string
	Search(ctx context.Context, query string) ([]Candidate, error)
}
