// Package cart implements the session-scoped shopping cart. The cart is
// an explicit value: handlers load it from the session, mutate it and
// write it back. It never touches durable storage.
package cart

import (
	"github.com/mehrshop/bazaar/core/pricing"
	"github.com/mehrshop/bazaar/core/product"
)

// Entry snapshots price and weight at add time, so later catalog edits
// do not move the amount the buyer was shown.
type Entry struct {
	Quantity   int `json:"quantity"`
	UnitPrice  int `json:"price"`
	UnitWeight int `json:"weight"`
}

type Cart struct {
	Entries      map[string]Entry `json:"entries"`
	DiscountCode string           `json:"discountCode,omitempty"`
}

// Outcome names what a mutation did instead of silently dropping it.
type Outcome int

const (
	Applied Outcome = iota
	NotFound
	CapacityExceeded
)

func New() Cart {
	return Cart{Entries: make(map[string]Entry)}
}

// Add puts one more unit of p in the cart. A product already at its
// stock limit is not incremented and the add reports CapacityExceeded.
func (c *Cart) Add(p product.Product) Outcome {
	e, ok := c.Entries[p.ID]
	if !ok {
		c.Entries[p.ID] = Entry{Quantity: 1, UnitPrice: p.Price, UnitWeight: p.Weight}
		return Applied
	}

	if e.Quantity+1 > p.Stock {
		return CapacityExceeded
	}

	e.Quantity++
	c.Entries[p.ID] = e
	return Applied
}

// Decrease removes one unit but never the last one: a quantity of 1 is
// left untouched, Remove is the way to drop the entry.
func (c *Cart) Decrease(productID string) Outcome {
	e, ok := c.Entries[productID]
	if !ok {
		return NotFound
	}

	if e.Quantity > 1 {
		e.Quantity--
		c.Entries[productID] = e
	}
	return Applied
}

func (c *Cart) Remove(productID string) Outcome {
	if _, ok := c.Entries[productID]; !ok {
		return NotFound
	}

	delete(c.Entries, productID)
	return Applied
}

// Clear drops every entry and the applied discount code.
func (c *Cart) Clear() {
	c.Entries = make(map[string]Entry)
	c.DiscountCode = ""
}

// Len is the total unit count, not the number of distinct products.
func (c Cart) Len() int {
	var n int
	for _, e := range c.Entries {
		n += e.Quantity
	}
	return n
}

func (c Cart) TotalPrice() int {
	var tot int
	for _, e := range c.Entries {
		tot += e.UnitPrice * e.Quantity
	}
	return tot
}

func (c Cart) TotalWeight() int {
	var tot int
	for _, e := range c.Entries {
		tot += e.UnitWeight * e.Quantity
	}
	return tot
}

func (c Cart) PostPrice() int {
	return pricing.ShippingCost(c.TotalWeight())
}

func (c Cart) DiscountAmount(percent int) int {
	return pricing.DiscountAmount(percent, c.TotalPrice())
}

// FinalPrice is total + shipping - discount. It is not clamped: a
// discount larger than the payable amount yields a negative value and
// the payment request rejects it.
func (c Cart) FinalPrice(discountAmount int) int {
	return c.TotalPrice() + c.PostPrice() - discountAmount
}
