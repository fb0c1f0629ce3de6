package cart

import "github.com/shopspring/decimal"

// Policy holds the pricing rules the cart consumes. The values are
// configuration, not something the cart computes.
type Policy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Currency              string
}

// DefaultPolicy returns the standard storefront pricing policy:
// 22% tax, free shipping above 50, flat 5.99 fee below it.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.NewFromFloat(0.22),
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingFee:       decimal.NewFromFloat(5.99),
		Currency:              "USD",
	}
}
