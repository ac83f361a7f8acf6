package address

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Address struct {
	ID        string    `json:"id" db:"address_id"`
	UserID    string    `json:"-" db:"user_id"`
	Street    string    `json:"street" db:"street"`
	City      string    `json:"city" db:"city"`
	State     string    `json:"state" db:"state"`
	Country   string    `json:"country" db:"country"`
	ZipCode   string    `json:"zipCode" db:"zip_code"`
	IsDefault bool      `json:"isDefault" db:"is_default"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Fetch is scoped to the owning user: an address that exists but
// belongs to someone else behaves exactly like a missing one.
func Fetch(ctx context.Context, db sqlx.ExtContext, id string, userID string) (Address, error) {
	const q = `SELECT * FROM addresses WHERE address_id = $1 AND user_id = $2`

	var a Address
	if err := sqlx.GetContext(ctx, db, &a, q, id, userID); err != nil {
		return Address{}, err
	}

	return a, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Address, error) {
	const q = `SELECT * FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`

	as := []Address{}
	if err := sqlx.SelectContext(ctx, db, &as, q, userID); err != nil {
		return nil, err
	}

	return as, nil
}
