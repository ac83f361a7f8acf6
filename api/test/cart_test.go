package test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mehrshop/bazaar/validate"
)

type cartView struct {
	Items []struct {
		Product struct {
			ID string `json:"id"`
		} `json:"product"`
		Quantity int `json:"quantity"`
		Price    int `json:"price"`
		Weight   int `json:"weight"`
	} `json:"items"`
	DiscountAmount int `json:"discount_amount"`
	PostPrice      int `json:"post_price"`
	TotalPrice     int `json:"total_price"`
	FinalPrice     int `json:"final_price"`
}

func TestCart(t *testing.T) {
	env, err := NewTestEnv(t, "cart_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	a := env.seedProduct(t, 100, 10, 500)
	b := env.seedProduct(t, 50, 10, 600)

	// Unknown products are a 404 with the contract message.
	w, body := env.postJSON(t, "/cart/add", map[string]string{"product": validate.GenerateID()})
	if w.StatusCode != http.StatusNotFound {
		t.Fatalf("adding unknown product: expected 404, but got %s", w.Status)
	}
	var er struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatal(err)
	}
	if er.Error != "Product does not exist" {
		t.Fatalf("unexpected error message %q", er.Error)
	}

	for _, id := range []string{a, a, b} {
		w, body = env.postJSON(t, "/cart/add", map[string]string{"product": id})
		if w.StatusCode != http.StatusOK {
			t.Fatalf("adding product: expected 200, but got %s", w.Status)
		}
	}
	assertMessage(t, body, "message", "Product added")

	var cv cartView
	if w := env.getJSON(t, "/cart", &cv); w.StatusCode != http.StatusOK {
		t.Fatalf("fetching cart: expected 200, but got %s", w.Status)
	}

	want := cartView{
		DiscountAmount: 0,
		PostPrice:      30000,
		TotalPrice:     250,
		FinalPrice:     30250,
	}
	got := cv
	got.Items = nil
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cart totals mismatch (-want +got):\n%s", diff)
	}
	if len(cv.Items) != 2 {
		t.Fatalf("expected 2 cart items, but got %d", len(cv.Items))
	}

	// Decrease and remove answer with their own messages and reshape
	// the cart accordingly.
	_, body = env.postJSON(t, "/cart/decrease", map[string]string{"product": a})
	assertMessage(t, body, "message", "Product decreased")

	_, body = env.postJSON(t, "/cart/remove", map[string]string{"product": b})
	assertMessage(t, body, "message", "Product removed")

	env.getJSON(t, "/cart", &cv)
	if len(cv.Items) != 1 || cv.Items[0].Quantity != 1 {
		t.Fatalf("expected a single entry of quantity 1, but got %+v", cv.Items)
	}

	_, body = env.postJSON(t, "/cart/clear", nil)
	assertMessage(t, body, "message", "Cart cleared")

	env.getJSON(t, "/cart", &cv)
	if len(cv.Items) != 0 || cv.TotalPrice != 0 {
		t.Fatalf("expected empty cart, but got %+v", cv)
	}
}

func TestCartStockLimit(t *testing.T) {
	env, err := NewTestEnv(t, "cart_stock_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	p := env.seedProduct(t, 100, 1, 100)

	_, body := env.postJSON(t, "/cart/add", map[string]string{"product": p})
	assertMessage(t, body, "message", "Product added")

	_, body = env.postJSON(t, "/cart/add", map[string]string{"product": p})
	assertMessage(t, body, "message", "Not enough stock to add more")

	var cv cartView
	env.getJSON(t, "/cart", &cv)
	if len(cv.Items) != 1 || cv.Items[0].Quantity != 1 {
		t.Fatalf("expected quantity pinned at 1, but got %+v", cv.Items)
	}
}

func TestCartDiscount(t *testing.T) {
	env, err := NewTestEnv(t, "cart_discount_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	now := time.Now().UTC()
	env.seedDiscount(t, "WELCOME10", 10, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1), true)
	env.seedDiscount(t, "OLDTIMES", 20, now.AddDate(0, -2, 0), now.AddDate(0, -1, 0), true)

	p := env.seedProduct(t, 1000, 10, 100)
	env.postJSON(t, "/cart/add", map[string]string{"product": p})

	_, body := env.postJSON(t, "/cart/discount", map[string]string{"code": "NOPE"})
	assertMessage(t, body, "detail", "Invalid discount code")

	_, body = env.postJSON(t, "/cart/discount", map[string]string{"code": "OLDTIMES"})
	assertMessage(t, body, "detail", "This discount code has expired")

	_, body = env.postJSON(t, "/cart/discount", map[string]string{"code": "WELCOME10"})
	assertMessage(t, body, "detail", "Discount code successfully applied")

	var cv cartView
	env.getJSON(t, "/cart", &cv)
	if cv.DiscountAmount != 100 {
		t.Fatalf("expected discount amount 100, but got %d", cv.DiscountAmount)
	}
	if cv.FinalPrice != cv.TotalPrice+cv.PostPrice-cv.DiscountAmount {
		t.Fatalf("final price formula violated: %+v", cv)
	}
}

func assertMessage(t *testing.T, body []byte, key, want string) {
	t.Helper()

	var m map[string]string
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("decoding %s: %v", body, err)
	}
	if m[key] != want {
		t.Fatalf("expected %s %q, but got %q", key, want, m[key])
	}
}
