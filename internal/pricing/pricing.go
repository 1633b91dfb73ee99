// Package pricing derives line, subtotal, shipping and grand totals for a
// set of line items. All arithmetic is exact decimal; rounding to cents
// happens only when amounts are rendered.
package pricing

import (
	"github.com/safar/cartstore/internal/models"
	"github.com/shopspring/decimal"
)

var (
	FreeShippingThreshold = decimal.NewFromInt(1000)
	FlatShippingRate      = decimal.NewFromInt(50)
)

type Totals struct {
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
	ItemCount int
}

// UnitPrice is the captured product price plus any size and design surcharge.
func UnitPrice(item models.LineItem) decimal.Decimal {
	price := item.UnitPrice
	if item.Size != nil {
		price = price.Add(item.Size.Surcharge)
	}
	if item.Design != nil {
		price = price.Add(item.Design.Surcharge)
	}
	return price
}

func LineTotal(item models.LineItem) decimal.Decimal {
	return UnitPrice(item).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func Subtotal(items []models.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(LineTotal(item))
	}
	return sum
}

// Shipping is free strictly above the threshold.
func Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShippingRate
}

func ItemCount(items []models.LineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

func Calculate(items []models.LineItem) Totals {
	subtotal := Subtotal(items)
	shipping := Shipping(subtotal)
	return Totals{
		Subtotal:  subtotal,
		Shipping:  shipping,
		Total:     subtotal.Add(shipping),
		ItemCount: ItemCount(items),
	}
}

// Format renders an amount with two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
