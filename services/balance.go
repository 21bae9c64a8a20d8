package services

import (
	"github.com/shopspring/decimal"

	"github.com/fabricaware/workorder-app/models"
)

// Remaining computes the open balance of a planned quantity against a set of
// fulfillment entries: max(0, planned - sum(qty(entry))). The clamp matters
// when the authoritative store allowed an overrun the client did not know
// about; callers surface that separately via Overrun.
func Remaining[T any](planned decimal.Decimal, entries []T, qty func(T) decimal.Decimal) decimal.Decimal {
	rem := planned
	for _, e := range entries {
		rem = rem.Sub(qty(e))
	}
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Overrun returns how far the fulfilled total exceeds the planned quantity,
// or zero when it does not.
func Overrun[T any](planned decimal.Decimal, entries []T, qty func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(qty(e))
	}
	over := total.Sub(planned)
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}

// DeliveryRemaining is Remaining specialized to an order's delivery records.
func DeliveryRemaining(planned decimal.Decimal, deliveries []models.OrderDelivery) decimal.Decimal {
	return Remaining(planned, deliveries, func(d models.OrderDelivery) decimal.Decimal { return d.Quantity })
}

// DeliveryOverrun is Overrun specialized to an order's delivery records.
// Callers surface a non-zero value as an over-delivered warning.
func DeliveryOverrun(planned decimal.Decimal, deliveries []models.OrderDelivery) decimal.Decimal {
	return Overrun(planned, deliveries, func(d models.OrderDelivery) decimal.Decimal { return d.Quantity })
}

// ComponentShortfall is the still-unreserved part of a requirement line.
func ComponentShortfall(c models.OrderComponent) decimal.Decimal {
	short := c.RequiredQty.Sub(c.ReservedQty)
	if short.IsNegative() {
		return decimal.Zero
	}
	return short
}
