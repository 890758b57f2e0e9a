package domain

import "time"

// ConfidenceLevel is the discrete certainty label attached to a chosen match
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Candidate represents a product found by a store's search, before being
// judged relevant. Immutable once returned by the search layer.
type Candidate struct {
	ID             string    `json:"id"`
	StoreID        string    `json:"store_id"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	URL            string    `json:"url,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	SizeDescriptor string    `json:"size_descriptor,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// StoreMatch holds the chosen product (if any) for one item in one store,
// plus ranked runner-up candidates the user can swap in.
type StoreMatch struct {
	Product      *Candidate      `json:"product,omitempty"`
	Confidence   ConfidenceLevel `json:"confidence,omitempty"`
	Alternatives []Candidate     `json:"alternatives"`
	Warning      string          `json:"warning,omitempty"`
	MatchScore   float64         `json:"match_score"`
}

// ItemMatch maps one shopping list entry to its per-store matches.
// Matches always has an entry for every configured store id.
type ItemMatch struct {
	Query   string                `json:"query"`
	Matches map[string]StoreMatch `json:"matches"`
}

// StoreSummary aggregates one store's results over the whole item list.
// Recomputed in full from the item list; never patched incrementally.
type StoreSummary struct {
	StoreID       string     `json:"store_id"`
	StoreName     string     `json:"store_name"`
	TotalPrice    float64    `json:"total_price"`
	MatchedCount  int        `json:"matched_count"`
	MissingCount  int        `json:"missing_count"`
	WarnedCount   int        `json:"warned_count"`
	IsRecommended bool       `json:"is_recommended"`
	AsOf          *time.Time `json:"as_of,omitempty"`
}

// Comparison is the full result of one comparison request, addressable by
// its id for later override.
type Comparison struct {
	ComparisonID string         `json:"comparison_id"`
	Stores       []StoreSummary `json:"stores"`
	Items        []ItemMatch    `json:"items"`
}

// Store identifies one configured retailer.
type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CompareRequest is the inbound shape for a comparison call.
type CompareRequest struct {
	Items []string `json:"items" binding:"required"`
}

// OverrideRequest carries a manual product selection for an item-store pair.
type OverrideRequest struct {
	ItemQuery string `json:"item_query" binding:"required"`
	StoreID   string `json:"store_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
}

// Clone returns a deep copy of the comparison so a stored session can be
// handed out without aliasing its slices and maps.
func (c *Comparison) Clone() *Comparison {
	if c == nil {
		return nil
	}
	out := &Comparison{
		ComparisonID: c.ComparisonID,
		Stores:       make([]StoreSummary, len(c.Stores)),
		Items:        make([]ItemMatch, len(c.Items)),
	}
	copy(out.Stores, c.Stores)
	for i, item := range c.Items {
		cloned := ItemMatch{
			Query:   item.Query,
			Matches: make(map[string]StoreMatch, len(item.Matches)),
		}
		for storeID, sm := range item.Matches {
			cloned.Matches[storeID] = sm.Clone()
		}
		out.Items[i] = cloned
	}
	return out
}

// Clone returns a copy of the store match with its own product pointer and
// alternatives slice.
func (m StoreMatch) Clone() StoreMatch {
	out := m
	if m.Product != nil {
		product := *m.Product
		out.Product = &product
	}
	if m.Alternatives != nil {
		out.Alternatives = make([]Candidate, len(m.Alternatives))
		copy(out.Alternatives, m.Alternatives)
	}
	return out
}
