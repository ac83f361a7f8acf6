package discount

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type Discount struct {
	ID          string    `json:"id" db:"discount_id"`
	Code        string    `json:"code" db:"code"`
	Value       int       `json:"value" db:"value"`
	Description string    `json:"description" db:"description"`
	StartDate   time.Time `json:"startDate" db:"start_date"`
	EndDate     time.Time `json:"endDate" db:"end_date"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Valid reports whether the code can be redeemed right now.
func (d Discount) Valid(now time.Time) bool {
	return d.IsActive && !now.Before(d.StartDate) && !now.After(d.EndDate)
}

type Status int

const (
	StatusActive Status = iota
	StatusInvalid
	StatusExpired
)

func FetchByCode(ctx context.Context, db sqlx.ExtContext, code string) (Discount, error) {
	const q = `SELECT * FROM discounts WHERE code = $1`

	var d Discount
	if err := sqlx.GetContext(ctx, db, &d, q, code); err != nil {
		return Discount{}, err
	}

	return d, nil
}

// Resolve classifies a discount code: unknown codes are invalid, known
// codes outside their activity window are expired.
func Resolve(ctx context.Context, db sqlx.ExtContext, code string) (Discount, Status, error) {
	d, err := FetchByCode(ctx, db, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Discount{}, StatusInvalid, nil
		}
		return Discount{}, StatusInvalid, err
	}

	if !d.Valid(time.Now().UTC()) {
		return d, StatusExpired, nil
	}

	return d, StatusActive, nil
}
