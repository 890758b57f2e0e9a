package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adargal/pelles/internal/domain"
)

const (
	superHeferStoreID   = "super_hefer"
	superHeferStoreName = "Super Hefer Large"
)

// userAgent mirrors a desktop browser; both stores reject obvious bots
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// SuperHeferClient fetches product candidates from the Super Hefer site.
// The site gates search behind a session cookie obtained interactively;
// cookies are loaded from a JSON file produced by that login flow. When
// the site answers with its challenge page the client reports
// ErrAuthRequired so the comparison can flag the store instead of
// silently returning nothing.
type SuperHeferClient struct {
	httpClient *http.Client
	baseURL    string
	maxResults int
}

// storedCookie is the on-disk shape of one saved session cookie
type storedCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// NewSuperHeferClient creates a Super Hefer search client. cookieFile may
// be empty; searches then run unauthenticated and likely hit the challenge.
func NewSuperHeferClient(baseURL, cookieFile string, maxResults int, timeout time.Duration) (*SuperHeferClient, error) {
	if baseURL == "" {
		baseURL = "https://www.superhefer.co.il"
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	client := &SuperHeferClient{
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		baseURL:    baseURL,
		maxResults: maxResults,
	}

	if cookieFile != "" {
		if err := client.loadCookies(cookieFile); err != nil {
			// Missing cookies are survivable until the site challenges us
			log.Warn().Err(err).Str("store", superHeferStoreID).Msg("failed to load session cookies")
		}
	}

	return client, nil
}

// StoreID returns the unique store identifier.
func (c *SuperHeferClient) StoreID() string { return superHeferStoreID }

// StoreName returns the display name for the store.
func (c *SuperHeferClient) StoreName() string { return superHeferStoreName }

// loadCookies installs saved session cookies into the client's jar.
func (c *SuperHeferClient) loadCookies(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading cookie file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parsing cookie file: %w", err)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parsing base url: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:   sc.Name,
			Value:  sc.Value,
			Domain: sc.Domain,
			Path:   sc.Path,
		})
	}
	c.httpClient.Jar.SetCookies(base, cookies)

	log.Info().Str("store", superHeferStoreID).Int("cookies", len(cookies)).Msg("session cookies loaded")
	return nil
}

// superHeferItem is the wire shape of one search result
type superHeferItem struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Link   string  `json:"link"`
	Image  string  `json:"image"`
	Weight string  `json:"weight"`
}

// superHeferSearchResponse is the wire shape of the search endpoint
type superHeferSearchResponse struct {
	Items []superHeferItem `json:"items"`
}

// Search queries Super Hefer for products matching the query.
func (c *SuperHeferClient) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	endpoint := fmt.Sprintf("%s/api/catalog/search", c.baseURL)
	params := url.Values{}
	params.Add("q", query)
	params.Add("limit", fmt.Sprintf("%d", c.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", endpoint, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "he-IL")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScrapeFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrScrapeFailed, err)
	}

	if isChallengeResponse(resp, body) {
		return nil, fmt.Errorf("%w: super hefer served a challenge page", domain.ErrAuthRequired)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: super hefer returned status %d", domain.ErrScrapeFailed, resp.StatusCode)
	}

	var response superHeferSearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: decoding super hefer response: %v", domain.ErrScrapeFailed, err)
	}

	fetchedAt := time.Now().UTC()
	candidates := make([]domain.Candidate, 0, len(response.Items))
	for _, item := range response.Items {
		if len(candidates) >= c.maxResults {
			break
		}
		if item.ID == "" || item.Name == "" {
			continue
		}

		link := item.Link
		if link != "" && link[0] == '/' {
			link = c.baseURL + link
		}

		candidates = append(candidates, domain.Candidate{
			ID:             item.ID,
			StoreID:        superHeferStoreID,
			Name:           item.Name,
			Price:          item.Price,
			URL:            link,
			ImageURL:       item.Image,
			SizeDescriptor: item.Weight,
			FetchedAt:      fetchedAt,
		})
	}

	log.Info().Str("store", superHeferStoreID).Str("query", query).Int("count", len(candidates)).Msg("search complete")
	return candidates, nil
}

// isChallengeResponse detects the site's bot challenge, which arrives
// either as a 403 or as an HTML page instead of JSON.
func isChallengeResponse(resp *http.Response, body []byte) bool {
	if resp.StatusCode == http.StatusForbidden {
		return true
	}
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") && strings.Contains(strings.ToLower(string(body)), "captcha") {
		return true
	}
	return false
}
