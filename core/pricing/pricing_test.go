package pricing

import "testing"

func TestShippingCost(t *testing.T) {
	tests := []struct {
		weight int
		want   int
	}{
		{0, 0},
		{999, 0},
		{1000, 30000},
		{1600, 30000},
		{2000, 30000},
		{2001, 50000},
		{10000, 50000},
	}

	for _, tt := range tests {
		if got := ShippingCost(tt.weight); got != tt.want {
			t.Fatalf("ShippingCost(%d): expected %d, but got %d", tt.weight, tt.want, got)
		}
	}
}

func TestDiscountAmount(t *testing.T) {
	tests := []struct {
		percent int
		total   int
		want    int
	}{
		{10, 1000, 100},
		{20, 1000, 200},
		{0, 1000, 0},
		{10, 0, 0},
		{15, 99, 14},
		{100, 250, 250},
	}

	for _, tt := range tests {
		if got := DiscountAmount(tt.percent, tt.total); got != tt.want {
			t.Fatalf("DiscountAmount(%d, %d): expected %d, but got %d", tt.percent, tt.total, tt.want, got)
		}
	}
}
