package order

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mehrshop/bazaar/core/pricing"
)

type Order struct {
	ID             string    `json:"id" db:"order_id"`
	BuyerID        string    `json:"-" db:"buyer_id"`
	AddressID      string    `json:"addressId" db:"address_id"`
	FirstName      string    `json:"firstName" db:"first_name"`
	LastName       string    `json:"lastName" db:"last_name"`
	Phone          string    `json:"phone" db:"phone"`
	DiscountCode   string    `json:"discountCode" db:"discount_code"`
	DiscountAmount int       `json:"discountAmount" db:"discount_amount"`
	TransactionID  string    `json:"-" db:"transaction_id"`
	Paid           bool      `json:"paid" db:"paid"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Item snapshots price, quantity and weight at order creation. It is
// immutable once written; later product edits never touch it.
type Item struct {
	ID        string    `json:"id" db:"item_id"`
	OrderID   string    `json:"orderId" db:"order_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Price     int       `json:"price" db:"price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Weight    int       `json:"weight" db:"weight"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (i Item) Cost() int {
	return i.Price * i.Quantity
}

func (i Item) TotalWeight() int {
	return i.Weight * i.Quantity
}

// TotalCost, PostCost and FinalCost are computed from the persisted
// items, never from the (possibly long gone) session cart.

func TotalCost(items []Item) int {
	var tot int
	for _, it := range items {
		tot += it.Cost()
	}
	return tot
}

func PostCost(items []Item) int {
	var weight int
	for _, it := range items {
		weight += it.TotalWeight()
	}
	return pricing.ShippingCost(weight)
}

func FinalCost(o Order, items []Item) int {
	return TotalCost(items) + PostCost(items) - o.DiscountAmount
}

func Create(ctx context.Context, db sqlx.ExtContext, o Order) error {
	const q = `
	INSERT INTO orders
		(order_id, buyer_id, address_id, first_name, last_name, phone, discount_code, discount_amount, transaction_id, paid, created_at, updated_at)
	VALUES
		(:order_id, :buyer_id, :address_id, :first_name, :last_name, :phone, :discount_code, :discount_amount, :transaction_id, :paid, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, o); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO order_items
		(item_id, order_id, product_id, price, quantity, weight, created_at)
	VALUES
		(:item_id, :order_id, :product_id, :price, :quantity, :weight, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting order item: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	const q = `
	SELECT order_id, COALESCE(buyer_id::TEXT, '') AS buyer_id, COALESCE(address_id::TEXT, '') AS address_id,
	       first_name, last_name, phone, discount_code, discount_amount, transaction_id, paid,
	       created_at, updated_at
	FROM orders WHERE order_id = $1`

	var o Order
	if err := sqlx.GetContext(ctx, db, &o, q, id); err != nil {
		return Order{}, err
	}

	return o, nil
}

func FetchByTransactionID(ctx context.Context, db sqlx.ExtContext, transID string) (Order, error) {
	const q = `
	SELECT order_id, COALESCE(buyer_id::TEXT, '') AS buyer_id, COALESCE(address_id::TEXT, '') AS address_id,
	       first_name, last_name, phone, discount_code, discount_amount, transaction_id, paid,
	       created_at, updated_at
	FROM orders WHERE transaction_id = $1`

	var o Order
	if err := sqlx.GetContext(ctx, db, &o, q, transID); err != nil {
		return Order{}, err
	}

	return o, nil
}

// ListByBuyer returns the buyer's orders newest first.
func ListByBuyer(ctx context.Context, db sqlx.ExtContext, buyerID string) ([]Order, error) {
	const q = `
	SELECT order_id, COALESCE(buyer_id::TEXT, '') AS buyer_id, COALESCE(address_id::TEXT, '') AS address_id,
	       first_name, last_name, phone, discount_code, discount_amount, transaction_id, paid,
	       created_at, updated_at
	FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`

	os := []Order{}
	if err := sqlx.SelectContext(ctx, db, &os, q, buyerID); err != nil {
		return nil, err
	}

	return os, nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, orderID string) ([]Item, error) {
	const q = `SELECT * FROM order_items WHERE order_id = $1 ORDER BY created_at`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, orderID); err != nil {
		return nil, err
	}

	return items, nil
}

func SetTransactionID(ctx context.Context, db sqlx.ExtContext, id string, transID string) error {
	const q = `UPDATE orders SET transaction_id = $2, updated_at = $3 WHERE order_id = $1`

	if _, err := db.ExecContext(ctx, q, id, transID, time.Now().UTC()); err != nil {
		return fmt.Errorf("storing transaction id on order[%s]: %w", id, err)
	}

	return nil
}

// MarkPaid settles the order. The paid = FALSE condition keeps
// concurrent duplicate callbacks from producing a second state change;
// the returned flag tells whether this call was the one that settled.
func MarkPaid(ctx context.Context, db sqlx.ExtContext, id string) (bool, error) {
	const q = `UPDATE orders SET paid = TRUE, updated_at = $2 WHERE order_id = $1 AND paid = FALSE`

	res, err := db.ExecContext(ctx, q, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("settling order[%s]: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
