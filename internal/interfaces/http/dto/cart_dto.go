package dto

import (
	"github.com/storefront/backend/internal/domain/cart"
)

// AddItemRequest is the body of POST /carts/:session_id/items
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	SKU       string `json:"sku"`
	UnitPrice string `json:"unit_price" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	ImageURL  string `json:"image_url" binding:"omitempty,url"`
}

// UpdateQuantityRequest is the body of PUT /carts/:session_id/items/:product_id
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// CartItemResponse is one cart line in API responses
type CartItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
	ImageURL  string `json:"image_url,omitempty"`
	InStock   bool   `json:"in_stock"`
}

// CartResponse is the API view of a cart state
type CartResponse struct {
	SessionID string             `json:"session_id"`
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  string             `json:"subtotal"`
	Tax       string             `json:"tax"`
	Shipping  string             `json:"shipping"`
	Discount  string             `json:"discount"`
	Total     string             `json:"total"`
	Currency  string             `json:"currency"`
	UpdatedAt string             `json:"updated_at"`
}

// NewCartResponse maps a cart state to its API view
func NewCartResponse(st *cart.State) CartResponse {
	items := make([]CartItemResponse, len(st.Items))
	for i, item := range st.Items {
		items[i] = CartItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			SKU:       item.SKU,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal().StringFixed(2),
			ImageURL:  item.ImageURL,
			InStock:   item.InStock,
		}
	}
	return CartResponse{
		SessionID: st.SessionID,
		Items:     items,
		ItemCount: st.ItemCount(),
		Subtotal:  st.Subtotal.StringFixed(2),
		Tax:       st.Tax.StringFixed(2),
		Shipping:  st.Shipping.StringFixed(2),
		Discount:  st.Discount.StringFixed(2),
		Total:     st.Total.StringFixed(2),
		Currency:  st.Currency,
		UpdatedAt: st.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}
