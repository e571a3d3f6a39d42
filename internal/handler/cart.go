package handler

import (
	"net/http"
	"strconv"

	"voicecart/internal/cart"
	"voicecart/internal/catalog"
	"voicecart/internal/session"

	"github.com/gin-gonic/gin"
)

// CartHandler handles cart and catalog HTTP requests
type CartHandler struct {
	carts    *cart.Engine
	sessions *session.Store
	catalog  catalog.Store
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *cart.Engine, sessions *session.Store, store catalog.Store) *CartHandler {
	return &CartHandler{
		carts:    carts,
		sessions: sessions,
		catalog:  store,
	}
}

// GetCart handles GET /api/v1/cart/:session_id
func (h *CartHandler) GetCart(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
		return
	}

	c.JSON(http.StatusOK, h.carts.Summary(sessionID))
}

// ClearCart handles DELETE /api/v1/cart/:session_id
func (h *CartHandler) ClearCart(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
		return
	}

	c.JSON(http.StatusOK, h.carts.Clear(sessionID))
}

// GetSession handles GET /api/v1/session/:session_id - conversation context
// snapshot for debugging and client-side display
func (h *CartHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
		return
	}

	snapshot, ok := h.sessions.Snapshot(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":    snapshot.SessionID,
		"turns":         snapshot.Turns,
		"last_product":  snapshot.LastProduct,
		"last_entities": snapshot.LastEntities,
		"last_activity": snapshot.LastActivity,
	})
}

// GetProduct handles GET /api/v1/products/:id
func (h *CartHandler) GetProduct(c *gin.Context) {
	productIDStr := c.Param("id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.catalog.Get(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get product: " + err.Error()})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}
