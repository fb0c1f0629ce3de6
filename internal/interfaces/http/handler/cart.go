package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appcart "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CartHandler exposes the cart over REST
type CartHandler struct {
	BaseHandler
	service *appcart.Service
}

// NewCartHandler creates a cart handler
func NewCartHandler(service *appcart.Service) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes registers cart routes
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	carts := rg.Group("/carts/:session_id")
	{
		carts.GET("", h.Get)
		carts.DELETE("", h.Clear)
		carts.POST("/items", h.AddItem)
		carts.PUT("/items/:product_id", h.UpdateQuantity)
		carts.DELETE("/items/:product_id", h.RemoveItem)
		carts.POST("/sync", h.Sync)
		carts.POST("/check-prices", h.CheckPrices)
		carts.POST("/check-stock", h.CheckStock)
	}
}

// Get returns the session's cart
func (h *CartHandler) Get(c *gin.Context) {
	st, err := h.service.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewCartResponse(st))
}

// AddItem adds an item to the cart
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || price.IsNegative() {
		h.BadRequest(c, "unit_price must be a non-negative decimal")
		return
	}

	item := cart.Item{
		ProductID: req.ProductID,
		Name:      req.Name,
		SKU:       req.SKU,
		UnitPrice: price,
		Quantity:  req.Quantity,
		ImageURL:  req.ImageURL,
	}
	st, err := h.service.AddItem(c.Request.Context(), c.Param("session_id"), item)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewCartResponse(st))
}

// UpdateQuantity sets the quantity of a cart line. Zero removes it.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req dto.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	st, err := h.service.UpdateQuantity(c.Request.Context(),
		c.Param("session_id"), c.Param("product_id"), req.Quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewCartResponse(st))
}

// RemoveItem removes units of a product. Without a quantity query
// parameter the whole line goes.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	quantity := 0
	if raw := c.Query("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "quantity must be an integer")
			return
		}
		quantity = n
	}

	st, err := h.service.RemoveItem(c.Request.Context(),
		c.Param("session_id"), c.Param("product_id"), quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewCartResponse(st))
}

// Clear empties the cart
func (h *CartHandler) Clear(c *gin.Context) {
	st, err := h.service.Clear(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewCartResponse(st))
}

// Sync pushes the full cart state upstream, queueing when offline
func (h *CartHandler) Sync(c *gin.Context) {
	if err := h.service.SyncNow(c.Request.Context(), c.Param("session_id")); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// CheckPrices asks upstream to re-verify cart prices
func (h *CartHandler) CheckPrices(c *gin.Context) {
	if err := h.service.CheckPrices(c.Request.Context(), c.Param("session_id")); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// CheckStock asks upstream to re-verify cart stock levels
func (h *CartHandler) CheckStock(c *gin.Context) {
	if err := h.service.CheckStock(c.Request.Context(), c.Param("session_id")); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}
