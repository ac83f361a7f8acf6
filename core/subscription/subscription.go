package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// Plan-derived constants. Price and window are fixed at creation and
// never recomputed.
const (
	monthlyPrice = 1000
	yearlyPrice  = 2000

	monthlyDays = 30
	yearlyDays  = 365

	monthlyDiscount = 10
	yearlyDiscount  = 20
)

type Subscription struct {
	ID            string    `json:"id" db:"subscription_id"`
	UserID        string    `json:"-" db:"user_id"`
	Plan          string    `json:"plan" db:"plan"`
	Price         int       `json:"price" db:"price"`
	TransactionID string    `json:"-" db:"transaction_id"`
	Paid          bool      `json:"paid" db:"paid"`
	IsActive      bool      `json:"isActive" db:"is_active"`
	StartDate     time.Time `json:"startDate" db:"start_date"`
	EndDate       time.Time `json:"endDate" db:"end_date"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// New derives price and validity window from the plan. The record
// starts unpaid and inactive; settlement flips both.
func New(id string, userID string, plan string, now time.Time) (Subscription, error) {
	s := Subscription{
		ID:        id,
		UserID:    userID,
		Plan:      plan,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch plan {
	case PlanMonthly:
		s.Price = monthlyPrice
		s.EndDate = now.AddDate(0, 0, monthlyDays)
	case PlanYearly:
		s.Price = yearlyPrice
		s.EndDate = now.AddDate(0, 0, yearlyDays)
	default:
		return Subscription{}, fmt.Errorf("unknown plan %q", plan)
	}

	return s, nil
}

// Valid reports whether the subscription currently grants anything.
func (s Subscription) Valid(now time.Time) bool {
	return s.IsActive && !now.Before(s.StartDate) && !now.After(s.EndDate)
}

// DiscountPercent is the implicit discount an active, valid
// subscription grants in place of a coupon code.
func (s Subscription) DiscountPercent(now time.Time) int {
	if !s.Valid(now) {
		return 0
	}

	if s.Plan == PlanYearly {
		return yearlyDiscount
	}
	return monthlyDiscount
}

func Create(ctx context.Context, db sqlx.ExtContext, s Subscription) error {
	const q = `
	INSERT INTO subscriptions
		(subscription_id, user_id, plan, price, transaction_id, paid, is_active, start_date, end_date, created_at, updated_at)
	VALUES
		(:subscription_id, :user_id, :plan, :price, :transaction_id, :paid, :is_active, :start_date, :end_date, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, s); err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}

	return nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) (Subscription, error) {
	const q = `SELECT * FROM subscriptions WHERE user_id = $1`

	var s Subscription
	if err := sqlx.GetContext(ctx, db, &s, q, userID); err != nil {
		return Subscription{}, err
	}

	return s, nil
}

func FetchByTransactionID(ctx context.Context, db sqlx.ExtContext, transID string) (Subscription, error) {
	const q = `SELECT * FROM subscriptions WHERE transaction_id = $1`

	var s Subscription
	if err := sqlx.GetContext(ctx, db, &s, q, transID); err != nil {
		return Subscription{}, err
	}

	return s, nil
}

func SetTransactionID(ctx context.Context, db sqlx.ExtContext, id string, transID string) error {
	const q = `UPDATE subscriptions SET transaction_id = $2, updated_at = $3 WHERE subscription_id = $1`

	if _, err := db.ExecContext(ctx, q, id, transID, time.Now().UTC()); err != nil {
		return fmt.Errorf("storing transaction id on subscription[%s]: %w", id, err)
	}

	return nil
}

// MarkPaid settles the subscription. The paid = FALSE condition makes
// concurrent duplicate callbacks collapse to a single state change; the
// returned flag tells whether this call was the one that settled.
func MarkPaid(ctx context.Context, db sqlx.ExtContext, id string) (bool, error) {
	const q = `
	UPDATE subscriptions SET paid = TRUE, is_active = TRUE, updated_at = $2
	WHERE subscription_id = $1 AND paid = FALSE`

	res, err := db.ExecContext(ctx, q, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("settling subscription[%s]: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
