package push

import "fmt"

// Op is one cart operation carried over the realtime channel
type Op int

const (
	OpSync Op = iota
	OpAddItem
	OpRemoveItem
	OpUpdateQuantity
	OpClear
	OpCheckPrices
	OpCheckStock
)

// Inbound event names pushed by the upstream service
const (
	EventPriceUpdate = "cart:price-update"
	EventStockUpdate = "cart:stock-update"
	EventCartUpdated = "cart:updated"
)

// WireName returns the event name the upstream service expects. The
// switch is exhaustive; an unmapped op is a programming error and
// panics rather than silently emitting an empty event name.
func (o Op) WireName() string {
	switch o {
	case OpSync:
		return "cart:sync"
	case OpAddItem:
		return "cart:add-item"
	case OpRemoveItem:
		return "cart:remove-item"
	case OpUpdateQuantity:
		return "cart:update-quantity"
	case OpClear:
		return "cart:clear"
	case OpCheckPrices:
		return "cart:check-prices"
	case OpCheckStock:
		return "cart:check-stock"
	}
	panic(fmt.Sprintf("push: unmapped cart op %d", int(o)))
}

// String implements fmt.Stringer
func (o Op) String() string { return o.WireName() }
