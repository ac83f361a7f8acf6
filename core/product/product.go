package product

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Product struct {
	ID          string    `json:"id" db:"product_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       int       `json:"price" db:"price"`
	Stock       int       `json:"stock" db:"stock"`
	Weight      int       `json:"weight" db:"weight"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Product, error) {
	const q = `SELECT * FROM products WHERE product_id = $1`

	var p Product
	if err := sqlx.GetContext(ctx, db, &p, q, id); err != nil {
		return Product{}, err
	}

	return p, nil
}

// FetchByIDs loads products in bulk. Missing ids are simply absent from
// the result, the caller decides whether that matters.
func FetchByIDs(ctx context.Context, db sqlx.ExtContext, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}

	q, args, err := sqlx.In(`SELECT * FROM products WHERE product_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("expanding product id list: %w", err)
	}
	q = sqlx.Rebind(sqlx.DOLLAR, q)

	ps := []Product{}
	if err := sqlx.SelectContext(ctx, db, &ps, q, args...); err != nil {
		return nil, err
	}

	return ps, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Product, error) {
	const q = `SELECT * FROM products ORDER BY created_at DESC`

	ps := []Product{}
	if err := sqlx.SelectContext(ctx, db, &ps, q); err != nil {
		return nil, err
	}

	return ps, nil
}
