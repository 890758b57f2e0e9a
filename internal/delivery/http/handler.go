package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/adargal/pelles/internal/domain"
	"github.com/adargal/pelles/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	comparison *usecase.ComparisonService
	search     *usecase.SearchService
}

// NewHandler creates a new HTTP handler
func NewHandler(comparison *usecase.ComparisonService, search *usecase.SearchService) *Handler {
	return &Handler{
		comparison: comparison,
		search:     search,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pelles-backend",
		"version": "1.0.0",
	})
}

// ComparePrices runs a price comparison over a free-text shopping list
func (h *Handler) ComparePrices(c *gin.Context) {
	var request domain.CompareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No items provided"})
		return
	}

	// Filter empty lines and strip whitespace
	items := make([]string, 0, len(request.Items))
	for _, item := range request.Items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid items provided"})
		return
	}

	result, err := h.comparison.Compare(c.Request.Context(), items)
	if err != nil {
		log.Error().Err(err).Msg("comparison failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Comparison failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// OverrideMatch swaps the chosen product for an item-store pair
func (h *Handler) OverrideMatch(c *gin.Context) {
	comparisonID := c.Param("comparisonId")

	var request domain.OverrideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid override request"})
		return
	}

	result, err := h.comparison.Override(
		c.Request.Context(),
		comparisonID,
		request.ItemQuery,
		request.StoreID,
		request.ProductID,
	)
	if err != nil {
		if errors.Is(err, domain.ErrComparisonNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comparison not found"})
			return
		}
		log.Error().Err(err).Str("comparison_id", comparisonID).Msg("override failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Override failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListStores lists the configured stores
func (h *Handler) ListStores(c *gin.Context) {
	stores := h.search.Stores()

	out := make([]gin.H, 0, len(stores))
	for _, store := range stores {
		out = append(out, gin.H{"id": store.ID, "name": store.Name, "enabled": true})
	}
	c.JSON(http.StatusOK, gin.H{"stores": out})
}

// ClearCache removes all cached search results
func (h *Handler) ClearCache(c *gin.Context) {
	deleted, err := h.search.ClearCache(c.Request.Context(), "")
	if err != nil {
		log.Error().Err(err).Msg("cache clear failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared", "deleted_count": deleted})
}

// ClearStoreCache removes cached search results for one store
func (h *Handler) ClearStoreCache(c *gin.Context) {
	storeID := c.Param("storeId")

	deleted, err := h.search.ClearCache(c.Request.Context(), storeID)
	if err != nil {
		log.Error().Err(err).Str("store", storeID).Msg("cache clear failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared for " + storeID, "deleted_count": deleted})
}
