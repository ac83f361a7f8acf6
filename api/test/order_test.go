package test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mehrshop/bazaar/core/order"
	"github.com/mehrshop/bazaar/database"
	"github.com/mehrshop/bazaar/validate"
)

type orderCreated struct {
	OrderID    string `json:"order_id"`
	Amount     int    `json:"amount"`
	PaymentURL string `json:"payment_url"`
}

func TestOrder(t *testing.T) {
	env, err := NewTestEnv(t, "order_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	a := env.seedProduct(t, 100, 10, 500)
	b := env.seedProduct(t, 50, 10, 600)

	if err := Login(env); err != nil {
		t.Fatal(err)
	}
	defer Logout(env)

	// An empty cart cannot become an order.
	w, body := env.postJSON(t, "/orders", map[string]string{
		"address_id": env.AddressID,
		"first_name": "Test",
		"last_name":  "Buyer",
		"phone":      "09120000000",
	})
	if w.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty cart: expected 400, but got %s", w.Status)
	}

	env.postJSON(t, "/cart/add", map[string]string{"product": a})
	env.postJSON(t, "/cart/add", map[string]string{"product": a})
	env.postJSON(t, "/cart/add", map[string]string{"product": b})

	// An address of another user must behave like a missing one.
	w, _ = env.postJSON(t, "/orders", map[string]string{
		"address_id": validate.GenerateID(),
		"first_name": "Test",
		"last_name":  "Buyer",
		"phone":      "09120000000",
	})
	if w.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown address: expected 400, but got %s", w.Status)
	}

	w, body = env.postJSON(t, "/orders", map[string]string{
		"address_id": env.AddressID,
		"first_name": "Test",
		"last_name":  "Buyer",
		"phone":      "09120000000",
	})
	if w.StatusCode != http.StatusCreated {
		t.Fatalf("creating order: expected 201, but got %s: %s", w.Status, body)
	}

	var created orderCreated
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}

	// 250 total + 30000 shipping for 1600 grams.
	if created.Amount != 30250 {
		t.Fatalf("expected amount 30250, but got %d", created.Amount)
	}
	if !strings.Contains(created.PaymentURL, "/startpay/sandbox/") {
		t.Fatalf("unexpected payment url %q", created.PaymentURL)
	}
	if env.Gateway.lastCreateAmount != 30250 {
		t.Fatalf("gateway was asked for %d, expected 30250", env.Gateway.lastCreateAmount)
	}

	// The cart survives checkout: a failed payment must leave it
	// intact for a retry.
	var cv cartView
	env.getJSON(t, "/cart", &cv)
	if cv.TotalPrice != 250 {
		t.Fatalf("expected cart to survive order creation, but got %+v", cv)
	}

	// The persisted order computes its costs from the snapshotted
	// items, not from the session cart.
	items, err := order.FetchItems(context.Background(), env.DB, created.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if got := order.TotalCost(items); got != 250 {
		t.Fatalf("expected total cost 250, but got %d", got)
	}
	if got := order.PostCost(items); got != 30000 {
		t.Fatalf("expected post cost 30000, but got %d", got)
	}

	ord, err := order.Fetch(context.Background(), env.DB, created.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if ord.Paid {
		t.Fatal("a fresh order must be unpaid")
	}
	if got := order.FinalCost(ord, items); got != 30250 {
		t.Fatalf("expected final cost 30250, but got %d", got)
	}

	// Listing returns the buyer's orders newest first.
	var views []struct {
		ID        string `json:"id"`
		FinalCost int    `json:"finalCost"`
	}
	if w := env.getJSON(t, "/orders", &views); w.StatusCode != http.StatusOK {
		t.Fatalf("listing orders: expected 200, but got %s", w.Status)
	}
	if len(views) != 1 || views[0].ID != created.OrderID || views[0].FinalCost != 30250 {
		t.Fatalf("unexpected order list %+v", views)
	}
}

func TestOrderWithDiscount(t *testing.T) {
	env, err := NewTestEnv(t, "order_discount_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	now := time.Now().UTC()
	env.seedDiscount(t, "TENOFF", 10, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1), true)

	p := env.seedProduct(t, 1000, 10, 100)

	if err := Login(env); err != nil {
		t.Fatal(err)
	}
	defer Logout(env)

	env.postJSON(t, "/cart/add", map[string]string{"product": p})
	env.postJSON(t, "/cart/discount", map[string]string{"code": "TENOFF"})

	// A code never applied to the session fails validation.
	w, _ := env.postJSON(t, "/orders", map[string]string{
		"address_id":    env.AddressID,
		"first_name":    "Test",
		"last_name":     "Buyer",
		"phone":         "09120000000",
		"discount_code": "OTHER",
	})
	if w.StatusCode != http.StatusBadRequest {
		t.Fatalf("mismatched code: expected 400, but got %s", w.Status)
	}

	w, body := env.postJSON(t, "/orders", map[string]string{
		"address_id":    env.AddressID,
		"first_name":    "Test",
		"last_name":     "Buyer",
		"phone":         "09120000000",
		"discount_code": "TENOFF",
	})
	if w.StatusCode != http.StatusCreated {
		t.Fatalf("creating order: expected 201, but got %s: %s", w.Status, body)
	}

	var created orderCreated
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}

	// total 1000, weight 100 ships free, 10% off the total.
	if created.Amount != 900 {
		t.Fatalf("expected amount 900, but got %d", created.Amount)
	}

	ord, err := order.Fetch(context.Background(), env.DB, created.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if ord.DiscountCode != "TENOFF" || ord.DiscountAmount != 100 {
		t.Fatalf("unexpected discount snapshot on order: %+v", ord)
	}
}

// TestOrderAtomicity drives the same transaction shape the order
// assembly uses and fails it after the first item: nothing may remain.
func TestOrderAtomicity(t *testing.T) {
	env, err := NewTestEnv(t, "order_atomicity_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	p := env.seedProduct(t, 100, 10, 500)

	now := time.Now().UTC()
	orderID := validate.GenerateID()

	err = database.Transaction(env.DB, func(tx sqlx.ExtContext) error {
		ord := order.Order{
			ID:        orderID,
			BuyerID:   env.UserID,
			AddressID: env.AddressID,
			FirstName: "Test",
			LastName:  "Buyer",
			Phone:     "09120000000",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := order.Create(context.Background(), tx, ord); err != nil {
			return err
		}

		good := order.Item{
			ID: validate.GenerateID(), OrderID: orderID, ProductID: p,
			Price: 100, Quantity: 1, Weight: 500, CreatedAt: now,
		}
		if err := order.CreateItem(context.Background(), tx, good); err != nil {
			return err
		}

		// Unknown product violates the foreign key.
		bad := order.Item{
			ID: validate.GenerateID(), OrderID: orderID, ProductID: validate.GenerateID(),
			Price: 100, Quantity: 1, Weight: 500, CreatedAt: now,
		}
		return order.CreateItem(context.Background(), tx, bad)
	})
	if err == nil {
		t.Fatal("expected the transaction to fail")
	}

	var n int
	if err := env.DB.Get(&n, "SELECT COUNT(*) FROM orders WHERE order_id = $1", orderID); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatal("expected no order row after rollback")
	}

	if err := env.DB.Get(&n, "SELECT COUNT(*) FROM order_items WHERE order_id = $1", orderID); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatal("expected no order items after rollback")
	}
}
