package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adargal/pelles/internal/domain"
)

const (
	shufersalStoreID   = "shufersal"
	shufersalStoreName = "Shufersal"
)

// ShufersalClient fetches product candidates from the Shufersal Online
// search endpoint, which serves the same JSON the site's search page
// renders from.
type ShufersalClient struct {
	httpClient *http.Client
	baseURL    string
	maxResults int
}

// NewShufersalClient creates a Shufersal search client.
func NewShufersalClient(baseURL string, maxResults int, timeout time.Duration) *ShufersalClient {
	if baseURL == "" {
		baseURL = "https://www.shufersal.co.il"
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ShufersalClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		maxResults: maxResults,
	}
}

// StoreID returns the unique store identifier.
func (c *ShufersalClient) StoreID() string { return shufersalStoreID }

// StoreName returns the display name for the store.
func (c *ShufersalClient) StoreName() string { return shufersalStoreName }

// shufersalProduct is the wire shape of one product tile
type shufersalProduct struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price struct {
		Value float64 `json:"value"`
	} `json:"price"`
	URL    string `json:"url"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	UnitDescription string `json:"unitDescription"`
}

// shufersalSearchResponse is the wire shape of the search endpoint
type shufersalSearchResponse struct {
	Results []shufersalProduct `json:"results"`
}

// Search queries Shufersal for products matching the query (usually Hebrew).
func (c *ShufersalClient) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	endpoint := fmt.Sprintf("%s/online/he/search/results", c.baseURL)
	params := url.Values{}
	params.Add("q", query)
	params.Add("limit", fmt.Sprintf("%d", c.maxResults))

	body, err := c.doRequest(ctx, fmt.Sprintf("%s?%s", endpoint, params.Encode()))
	if err != nil {
		return nil, err
	}

	var response shufersalSearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: decoding shufersal response: %v", domain.ErrScrapeFailed, err)
	}

	fetchedAt := time.Now().UTC()
	candidates := make([]domain.Candidate, 0, len(response.Results))
	seen := make(map[string]bool)

	for _, product := range response.Results {
		if len(candidates) >= c.maxResults {
			break
		}
		if product.Code == "" || product.Name == "" || seen[product.Code] {
			continue
		}
		seen[product.Code] = true
		candidates = append(candidates, mapShufersalProduct(product, c.baseURL, fetchedAt))
	}

	log.Info().Str("store", shufersalStoreID).Str("query", query).Int("count", len(candidates)).Msg("search complete")
	return candidates, nil
}

// doRequest executes a GET with the headers Shufersal expects and retries
// once on transient server errors.
func (c *ShufersalClient) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Language", "he-IL")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrScrapeFailed, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: reading response: %v", domain.ErrScrapeFailed, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: shufersal returned status %d", domain.ErrScrapeFailed, resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("%w: shufersal returned status %d", domain.ErrScrapeFailed, resp.StatusCode)
		}
	}
	return nil, lastErr
}

// mapShufersalProduct converts a wire product into a Candidate.
func mapShufersalProduct(p shufersalProduct, baseURL string, fetchedAt time.Time) domain.Candidate {
	productURL := p.URL
	if productURL != "" && productURL[0] == '/' {
		productURL = baseURL + productURL
	}

	imageURL := ""
	if len(p.Images) > 0 {
		imageURL = p.Images[0].URL
		if imageURL != "" && imageURL[0] == '/' {
			imageURL = baseURL + imageURL
		}
	}

	return domain.Candidate{
		ID:             p.Code,
		StoreID:        shufersalStoreID,
		Name:           p.Name,
		Price:          p.Price.Value,
		URL:            productURL,
		ImageURL:       imageURL,
		SizeDescriptor: p.UnitDescription,
		FetchedAt:      fetchedAt,
	}
}
