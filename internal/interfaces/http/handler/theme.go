package handler

import (
	"github.com/gin-gonic/gin"

	apptheme "github.com/storefront/backend/internal/application/theme"
	"github.com/storefront/backend/internal/domain/theme"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// ThemeHandler exposes theme loading, validation and compilation
type ThemeHandler struct {
	BaseHandler
	loader *apptheme.Loader
}

// NewThemeHandler creates a theme handler
func NewThemeHandler(loader *apptheme.Loader) *ThemeHandler {
	return &ThemeHandler{loader: loader}
}

// RegisterRoutes registers theme routes
func (h *ThemeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	themes := rg.Group("/themes")
	{
		themes.GET("/:id", h.Get)
		themes.GET("/:id/css", h.CSS)
		themes.DELETE("/:id/cache", h.Invalidate)
		themes.POST("/validate", h.Validate)
		themes.POST("/sections/validate", h.ValidateSection)
	}
	rg.GET("/stores/:store_id/theme/:id", h.GetStoreTheme)
}

// Get returns a validated base theme
func (h *ThemeHandler) Get(c *gin.Context) {
	cfg, err := h.loader.GetTheme(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, cfg)
}

// GetStoreTheme returns the theme with the store's customization applied
func (h *ThemeHandler) GetStoreTheme(c *gin.Context) {
	cfg, err := h.loader.GetStoreTheme(c.Request.Context(), c.Param("id"), c.Param("store_id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, cfg)
}

// CSS compiles the theme to CSS. Query parameters: store (optional
// customization scope) and minify=true.
func (h *ThemeHandler) CSS(c *gin.Context) {
	minify := c.Query("minify") == "true"
	css, err := h.loader.CompileCSS(c.Request.Context(), c.Param("id"), c.Query("store"), minify)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	c.Header("Content-Type", "text/css; charset=utf-8")
	c.String(200, css)
}

// Invalidate drops the theme from the cache
func (h *ThemeHandler) Invalidate(c *gin.Context) {
	h.loader.Invalidate(c.Param("id"))
	h.NoContent(c)
}

// Validate statically checks a theme config posted in the body,
// returning every problem found.
func (h *ThemeHandler) Validate(c *gin.Context) {
	var cfg theme.ThemeConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidJSON, err.Error())
		return
	}

	if errs := theme.ValidateTheme(&cfg); len(errs) > 0 {
		h.ValidationError(c, toDetails(errs))
		return
	}
	h.Success(c, gin.H{"valid": true})
}

// ValidateSection statically checks one section schema
func (h *ThemeHandler) ValidateSection(c *gin.Context) {
	var section theme.SectionSchema
	if err := c.ShouldBindJSON(&section); err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidJSON, err.Error())
		return
	}

	if errs := theme.ValidateSection(&section); len(errs) > 0 {
		h.ValidationError(c, toDetails(errs))
		return
	}
	h.Success(c, gin.H{"valid": true})
}

func toDetails(errs []theme.ValidationError) []dto.ValidationDetail {
	details := make([]dto.ValidationDetail, len(errs))
	for i, e := range errs {
		details[i] = dto.ValidationDetail{Field: e.Field, Message: e.Message}
	}
	return details
}
