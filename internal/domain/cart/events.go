package cart

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCart = "Cart"

// Event type constants
const (
	EventTypeItemAdded       = "CartItemAdded"
	EventTypeItemRemoved     = "CartItemRemoved"
	EventTypeQuantityUpdated = "CartQuantityUpdated"
	EventTypeCartCleared     = "CartCleared"
	EventTypeCartReplaced    = "CartReplaced"
	EventTypePriceChanged    = "CartPriceChanged"
	EventTypeStockChanged    = "CartStockChanged"
)

// ItemAddedEvent is raised when an item is added to the cart
type ItemAddedEvent struct {
	shared.BaseDomainEvent
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// NewItemAddedEvent creates a new ItemAddedEvent
func NewItemAddedEvent(s *State, productID string, quantity int) *ItemAddedEvent {
	return &ItemAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemAdded, AggregateTypeCart, s.SessionID),
		ProductID:       productID,
		Quantity:        quantity,
	}
}

// ItemRemovedEvent is raised when an item is removed or decremented
type ItemRemovedEvent struct {
	shared.BaseDomainEvent
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// NewItemRemovedEvent creates a new ItemRemovedEvent
func NewItemRemovedEvent(s *State, productID string, quantity int) *ItemRemovedEvent {
	return &ItemRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemRemoved, AggregateTypeCart, s.SessionID),
		ProductID:       productID,
		Quantity:        quantity,
	}
}

// QuantityUpdatedEvent is raised when a line quantity is set directly
type QuantityUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// NewQuantityUpdatedEvent creates a new QuantityUpdatedEvent
func NewQuantityUpdatedEvent(s *State, productID string, quantity int) *QuantityUpdatedEvent {
	return &QuantityUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuantityUpdated, AggregateTypeCart, s.SessionID),
		ProductID:       productID,
		Quantity:        quantity,
	}
}

// CartClearedEvent is raised when the cart is emptied
type CartClearedEvent struct {
	shared.BaseDomainEvent
}

// NewCartClearedEvent creates a new CartClearedEvent
func NewCartClearedEvent(s *State) *CartClearedEvent {
	return &CartClearedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartCleared, AggregateTypeCart, s.SessionID),
	}
}

// CartReplacedEvent is raised when the state is replaced wholesale by a
// newer state from another replica or the server
type CartReplacedEvent struct {
	shared.BaseDomainEvent
}

// NewCartReplacedEvent creates a new CartReplacedEvent
func NewCartReplacedEvent(s *State) *CartReplacedEvent {
	return &CartReplacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartReplaced, AggregateTypeCart, s.SessionID),
	}
}

// PriceChangedEvent is raised when a server push changes a line price
type PriceChangedEvent struct {
	shared.BaseDomainEvent
	ProductID string          `json:"product_id"`
	OldPrice  decimal.Decimal `json:"old_price"`
	NewPrice  decimal.Decimal `json:"new_price"`
}

// NewPriceChangedEvent creates a new PriceChangedEvent
func NewPriceChangedEvent(s *State, productID string, oldPrice, newPrice decimal.Decimal) *PriceChangedEvent {
	return &PriceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePriceChanged, AggregateTypeCart, s.SessionID),
		ProductID:       productID,
		OldPrice:        oldPrice,
		NewPrice:        newPrice,
	}
}

// StockChangedEvent is raised when a line transitions out of stock
type StockChangedEvent struct {
	shared.BaseDomainEvent
	ProductID string `json:"product_id"`
	InStock   bool   `json:"in_stock"`
}

// NewStockChangedEvent creates a new StockChangedEvent
func NewStockChangedEvent(s *State, productID string, inStock bool) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockChanged, AggregateTypeCart, s.SessionID),
		ProductID:       productID,
		InStock:         inStock,
	}
}
