package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adargal/pelles/config"
	"github.com/adargal/pelles/internal/domain"
	"github.com/adargal/pelles/internal/infrastructure/cache"
	"github.com/adargal/pelles/internal/infrastructure/session"
	"github.com/adargal/pelles/internal/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubScraper serves canned candidates keyed by query
type stubScraper struct {
	id      string
	name    string
	results map[string][]domain.Candidate
	err     error
}

func (s *stubScraper) StoreID() string   { return s.id }
func (s *stubScraper) StoreName() string { return s.name }

func (s *stubScraper) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results[query], nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8000",
			Environment:    "development",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		RateLimit: config.RateLimitConfig{PerIP: 1000},
	}
}

func setupTestRouter(t *testing.T, scrapers ...domain.Scraper) *gin.Engine {
	t.Helper()

	if len(scrapers) == 0 {
		scrapers = []domain.Scraper{
			&stubScraper{
				id:   "shufersal",
				name: "Shufersal",
				results: map[string][]domain.Candidate{
					"חלב": {
						{ID: "p1", StoreID: "shufersal", Name: "חלב תנובה 3%", Price: 6.9, FetchedAt: time.Now()},
					},
				},
			},
		}
	}

	searchService := usecase.NewSearchService(
		cache.NewMemoryCache(time.Hour),
		scrapers,
		usecase.SearchConfig{ScraperDelay: time.Millisecond, ScraperTimeout: 5 * time.Second, MaxResults: 10},
	)
	comparisonService := usecase.NewComparisonService(
		searchService,
		usecase.NewMatcherService(usecase.MatcherConfig{}),
		session.NewMemoryStore(time.Hour),
		usecase.ComparisonConfig{},
	)

	return SetupRouter(testConfig(), NewHandler(comparisonService, searchService))
}

func doJSON(router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "pelles-backend", body["service"])
}

func TestComparePrices(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/compare", gin.H{"items": []string{"חלב"}})
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.Comparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.Len(t, result.ComparisonID, 8)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "חלב", result.Items[0].Query)

	match, ok := result.Items[0].Matches["shufersal"]
	require.True(t, ok)
	require.NotNil(t, match.Product)
	assert.Equal(t, "p1", match.Product.ID)
	assert.Equal(t, domain.ConfidenceHigh, match.Confidence)

	require.Len(t, result.Stores, 1)
	assert.Equal(t, 6.9, result.Stores[0].TotalPrice)
	assert.True(t, result.Stores[0].IsRecommended)
}

func TestComparePrices_TrimsAndFiltersItems(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/compare", gin.H{"items": []string{"  חלב  ", "", "   "}})
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.Comparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, "חלב", result.Items[0].Query)
}

func TestComparePrices_BadRequests(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name      string
		payload   interface{}
		wantError string
	}{
		{"missing items", gin.H{}, "No items provided"},
		{"empty items", gin.H{"items": []string{}}, "No valid items provided"},
		{"only blank items", gin.H{"items": []string{"", "  "}}, "No valid items provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/v1/compare", tt.payload)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestOverrideMatch(t *testing.T) {
	scraper := &stubScraper{
		id:   "shufersal",
		name: "Shufersal",
		results: map[string][]domain.Candidate{
			"חלב": {
				{ID: "p1", StoreID: "shufersal", Name: "חלב תנובה 3%", Price: 6.9, FetchedAt: time.Now()},
				{ID: "p2", StoreID: "shufersal", Name: "חלב טרה 3%", Price: 6.5, FetchedAt: time.Now()},
			},
		},
	}
	router := setupTestRouter(t, scraper)

	w := doJSON(router, http.MethodPost, "/api/v1/compare", gin.H{"items": []string{"חלב"}})
	require.Equal(t, http.StatusOK, w.Code)

	var created domain.Comparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	chosen := created.Items[0].Matches["shufersal"].Product.ID
	replacement := "p2"
	if chosen == "p2" {
		replacement = "p1"
	}

	w = doJSON(router, http.MethodPost, "/api/v1/compare/"+created.ComparisonID+"/override", gin.H{
		"item_query": "חלב",
		"store_id":   "shufersal",
		"product_id": replacement,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated domain.Comparison
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))

	match := updated.Items[0].Matches["shufersal"]
	require.NotNil(t, match.Product)
	assert.Equal(t, replacement, match.Product.ID)
	assert.Equal(t, domain.ConfidenceHigh, match.Confidence)
	assert.Equal(t, "User selected", match.Warning)
	assert.Equal(t, 1.0, match.MatchScore)
}

func TestOverrideMatch_UnknownComparison(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/compare/deadbeef/override", gin.H{
		"item_query": "חלב",
		"store_id":   "shufersal",
		"product_id": "p2",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Comparison not found", body["error"])
}

func TestOverrideMatch_InvalidBody(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/compare/deadbeef/override", gin.H{"item_query": "חלב"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListStores(t *testing.T) {
	router := setupTestRouter(t,
		&stubScraper{id: "shufersal", name: "Shufersal"},
		&stubScraper{id: "super_hefer", name: "Super Hefer Large"},
	)

	w := doJSON(router, http.MethodGet, "/api/v1/stores", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Stores []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Enabled bool   `json:"enabled"`
		} `json:"stores"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Stores, 2)
	assert.Equal(t, "shufersal", body.Stores[0].ID)
	assert.Equal(t, "Super Hefer Large", body.Stores[1].Name)
	assert.True(t, body.Stores[0].Enabled)
}

func TestClearCache(t *testing.T) {
	router := setupTestRouter(t)

	// Prime the cache with one search.
	w := doJSON(router, http.MethodPost, "/api/v1/compare", gin.H{"items": []string{"חלב"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/v1/cache", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Message      string `json:"message"`
		DeletedCount int64  `json:"deleted_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Cache cleared", body.Message)
	assert.Equal(t, int64(1), body.DeletedCount)
}

func TestClearStoreCache(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/compare", gin.H{"items": []string{"חלב"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/v1/cache/super_hefer", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Message      string `json:"message"`
		DeletedCount int64  `json:"deleted_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Cache cleared for super_hefer", body.Message)
	assert.Equal(t, int64(0), body.DeletedCount)

	w = doJSON(router, http.MethodDelete, "/api/v1/cache/shufersal", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.DeletedCount)
}
