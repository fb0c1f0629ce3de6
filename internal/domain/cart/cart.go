package cart

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Item is a single cart line, unique per ProductID
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
	InStock   bool            `json:"in_stock"`
}

// LineTotal returns unit price multiplied by quantity
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// State is the cart aggregate. Monetary fields are always derived from
// Items through recalculate; they are never written independently.
type State struct {
	shared.BaseAggregateRoot

	SessionID string          `json:"session_id"`
	Items     []Item          `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Shipping  decimal.Decimal `json:"shipping"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewState creates an empty cart for a session
func NewState(sessionID string, p Policy) *State {
	s := &State{
		SessionID: sessionID,
		Items:     make([]Item, 0),
		Currency:  p.Currency,
	}
	s.recalculate(p)
	return s
}

// AddItem adds an item to the cart. If the product is already present the
// quantities are summed, never duplicated into a second line. A new line is
// optimistically marked in stock until a stock check corrects it.
func (s *State) AddItem(item Item, p Policy) error {
	if item.ProductID == "" {
		return shared.NewDomainError("INVALID_INPUT", "product id is required")
	}
	if item.Quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("quantity must be positive, got %d", item.Quantity))
	}

	if idx := s.indexOf(item.ProductID); idx >= 0 {
		s.Items[idx].Quantity += item.Quantity
	} else {
		item.InStock = true
		s.Items = append(s.Items, item)
	}

	s.recalculate(p)
	s.touch()
	s.AddDomainEvent(NewItemAddedEvent(s, item.ProductID, item.Quantity))
	return nil
}

// RemoveItem removes quantity units of a product. A quantity of zero or
// anything at or above the current line quantity removes the line entirely.
func (s *State) RemoveItem(productID string, quantity int, p Policy) error {
	idx := s.indexOf(productID)
	if idx < 0 {
		return shared.ErrNotFound
	}

	if quantity <= 0 || quantity >= s.Items[idx].Quantity {
		s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
	} else {
		s.Items[idx].Quantity -= quantity
	}

	s.recalculate(p)
	s.touch()
	s.AddDomainEvent(NewItemRemovedEvent(s, productID, quantity))
	return nil
}

// UpdateQuantity sets the quantity of a line. Zero or negative removes the
// line entirely.
func (s *State) UpdateQuantity(productID string, quantity int, p Policy) error {
	idx := s.indexOf(productID)
	if idx < 0 {
		return shared.ErrNotFound
	}

	if quantity <= 0 {
		s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
	} else {
		s.Items[idx].Quantity = quantity
	}

	s.recalculate(p)
	s.touch()
	s.AddDomainEvent(NewQuantityUpdatedEvent(s, productID, quantity))
	return nil
}

// Clear removes every item from the cart
func (s *State) Clear(p Policy) {
	s.Items = s.Items[:0]
	s.recalculate(p)
	s.touch()
	s.AddDomainEvent(NewCartClearedEvent(s))
}

// ApplyPriceUpdate applies a server-pushed price change for a product.
// Returns the previous price and whether anything changed.
func (s *State) ApplyPriceUpdate(productID string, newPrice decimal.Decimal, p Policy) (decimal.Decimal, bool) {
	idx := s.indexOf(productID)
	if idx < 0 {
		return decimal.Zero, false
	}

	oldPrice := s.Items[idx].UnitPrice
	if oldPrice.Equal(newPrice) {
		return oldPrice, false
	}

	s.Items[idx].UnitPrice = newPrice
	s.recalculate(p)
	s.touch()
	s.AddDomainEvent(NewPriceChangedEvent(s, productID, oldPrice, newPrice))
	return oldPrice, true
}

// ApplyStockUpdate applies a server-pushed stock change for a product.
// An available quantity below the line quantity clamps the line down.
func (s *State) ApplyStockUpdate(productID string, inStock bool, available int, p Policy) bool {
	idx := s.indexOf(productID)
	if idx < 0 {
		return false
	}

	wasInStock := s.Items[idx].InStock
	s.Items[idx].InStock = inStock
	if inStock && available > 0 && available < s.Items[idx].Quantity {
		s.Items[idx].Quantity = available
	}

	s.recalculate(p)
	s.touch()
	if wasInStock && !inStock {
		s.AddDomainEvent(NewStockChangedEvent(s, productID, inStock))
	}
	return true
}

// ReplaceWith replaces the entire state with another one when the other
// state carries a newer last-writer-wins marker. Totals are recomputed from
// the incoming item list rather than trusted from the wire.
func (s *State) ReplaceWith(other *State, p Policy) bool {
	if !other.UpdatedAt.After(s.UpdatedAt) {
		return false
	}

	s.Items = make([]Item, len(other.Items))
	copy(s.Items, other.Items)
	s.Discount = other.Discount
	s.Currency = other.Currency
	s.recalculate(p)
	s.UpdatedAt = other.UpdatedAt
	s.AddDomainEvent(NewCartReplacedEvent(s))
	return true
}

// ItemCount returns the total number of units across all lines
func (s *State) ItemCount() int {
	count := 0
	for _, item := range s.Items {
		count += item.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines
func (s *State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Clone returns a deep copy without pending domain events
func (s *State) Clone() *State {
	clone := *s
	clone.BaseAggregateRoot = shared.BaseAggregateRoot{}
	clone.Items = make([]Item, len(s.Items))
	copy(clone.Items, s.Items)
	return &clone
}

func (s *State) indexOf(productID string) int {
	for i, item := range s.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// recalculate is the single enforcement point for the totals invariant:
// total = subtotal + tax + shipping - discount. Shipping is the flat fee
// whenever the subtotal does not exceed the free-shipping threshold, which
// includes the empty cart. That rule is deliberate and covered by tests;
// see DESIGN.md before changing it.
func (s *State) recalculate(p Policy) {
	subtotal := decimal.Zero
	for _, item := range s.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	s.Subtotal = subtotal
	s.Tax = subtotal.Mul(p.TaxRate).Round(2)
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		s.Shipping = decimal.Zero
	} else {
		s.Shipping = p.FlatShippingFee
	}
	s.Total = s.Subtotal.Add(s.Tax).Add(s.Shipping).Sub(s.Discount)
}

// touch advances the last-writer-wins marker. The marker must be strictly
// increasing even when the wall clock does not move between mutations.
func (s *State) touch() {
	now := time.Now()
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Millisecond)
	}
	s.UpdatedAt = now
}
