// Package pricing holds the money and weight policies shared by the
// session cart and the persisted order, so the amount shown at cart
// time and the amount settled at order time come from one table.
package pricing

// Shipping tiers by total weight in grams. The boundaries are an
// external contract: 1000 and 2000 both fall in the middle tier.
const (
	shippingFreeBelow = 1000
	shippingMidUpTo   = 2000

	shippingMidCost  = 30000
	shippingHighCost = 50000
)

func ShippingCost(weight int) int {
	switch {
	case weight < shippingFreeBelow:
		return 0
	case weight <= shippingMidUpTo:
		return shippingMidCost
	default:
		return shippingHighCost
	}
}

// DiscountAmount converts a percentage into an absolute amount off the
// given total. Fractions of a unit are dropped.
func DiscountAmount(percent int, total int) int {
	if percent <= 0 || total <= 0 {
		return 0
	}
	return percent * total / 100
}
