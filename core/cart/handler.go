package cart

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/mehrshop/bazaar/api/web"
	"github.com/mehrshop/bazaar/api/weberr"
	"github.com/mehrshop/bazaar/core/discount"
	"github.com/mehrshop/bazaar/core/product"
)

type actionPayload struct {
	Product string `json:"product" validate:"required"`
}

type discountPayload struct {
	Code string `json:"code"`
}

type message struct {
	Message string `json:"message"`
}

type detail struct {
	Detail string `json:"detail"`
}

// Item is a cart entry joined with its product for display.
type Item struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Price    int             `json:"price"`
	Weight   int             `json:"weight"`
}

type view struct {
	Items          []Item `json:"items"`
	DiscountAmount int    `json:"discount_amount"`
	PostPrice      int    `json:"post_price"`
	TotalPrice     int    `json:"total_price"`
	FinalPrice     int    `json:"final_price"`
}

// Details joins the cart entries with their products in one bulk query.
// Prices and weights stay the snapshotted ones, not the product's.
func Details(ctx context.Context, db sqlx.ExtContext, c Cart) ([]Item, error) {
	ids := make([]string, 0, len(c.Entries))
	for id := range c.Entries {
		ids = append(ids, id)
	}

	ps, err := product.FetchByIDs(ctx, db, ids)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(ps))
	for _, p := range ps {
		e := c.Entries[p.ID]
		items = append(items, Item{
			Product:  p,
			Quantity: e.Quantity,
			Price:    e.UnitPrice,
			Weight:   e.UnitWeight,
		})
	}

	return items, nil
}

// LiveDiscountAmount re-evaluates the stored code on every call: a code
// that expired after it was applied counts as zero.
func LiveDiscountAmount(ctx context.Context, db sqlx.ExtContext, c Cart) (int, error) {
	if c.DiscountCode == "" {
		return 0, nil
	}

	d, status, err := discount.Resolve(ctx, db, c.DiscountCode)
	if err != nil {
		return 0, err
	}
	if status != discount.StatusActive {
		return 0, nil
	}

	return c.DiscountAmount(d.Value), nil
}

func HandleShow(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c := FromSession(ctx, session)

		items, err := Details(ctx, db, c)
		if err != nil {
			return err
		}

		amount, err := LiveDiscountAmount(ctx, db, c)
		if err != nil {
			return err
		}

		v := view{
			Items:          items,
			DiscountAmount: amount,
			PostPrice:      c.PostPrice(),
			TotalPrice:     c.TotalPrice(),
			FinalPrice:     c.FinalPrice(amount),
		}

		return web.Respond(ctx, w, v, http.StatusOK)
	}
}

func HandleAdd(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p, err := fetchTarget(ctx, w, r, db)
		if err != nil {
			return err
		}

		c := FromSession(ctx, session)
		out := c.Add(p)
		if err := Save(ctx, session, c); err != nil {
			return err
		}

		if out == CapacityExceeded {
			return web.Respond(ctx, w, message{"Not enough stock to add more"}, http.StatusOK)
		}

		return web.Respond(ctx, w, message{"Product added"}, http.StatusOK)
	}
}

func HandleDecrease(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p, err := fetchTarget(ctx, w, r, db)
		if err != nil {
			return err
		}

		c := FromSession(ctx, session)
		c.Decrease(p.ID)
		if err := Save(ctx, session, c); err != nil {
			return err
		}

		return web.Respond(ctx, w, message{"Product decreased"}, http.StatusOK)
	}
}

func HandleRemove(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p, err := fetchTarget(ctx, w, r, db)
		if err != nil {
			return err
		}

		c := FromSession(ctx, session)
		c.Remove(p.ID)
		if err := Save(ctx, session, c); err != nil {
			return err
		}

		return web.Respond(ctx, w, message{"Product removed"}, http.StatusOK)
	}
}

func HandleClear(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c := FromSession(ctx, session)
		c.Clear()
		if err := Save(ctx, session, c); err != nil {
			return err
		}

		return web.Respond(ctx, w, message{"Cart cleared"}, http.StatusOK)
	}
}

func HandleApplyDiscount(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var dp discountPayload
		if err := web.Decode(w, r, &dp); err != nil {
			return weberr.BadRequest(err)
		}

		if dp.Code == "" {
			err := errors.New("no discount code provided")
			return weberr.NewError(err, "No discount code provided", http.StatusBadRequest)
		}

		_, status, err := discount.Resolve(ctx, db, dp.Code)
		if err != nil {
			return err
		}

		switch status {
		case discount.StatusInvalid:
			return web.Respond(ctx, w, detail{"Invalid discount code"}, http.StatusOK)
		case discount.StatusExpired:
			return web.Respond(ctx, w, detail{"This discount code has expired"}, http.StatusOK)
		}

		c := FromSession(ctx, session)
		c.DiscountCode = dp.Code
		if err := Save(ctx, session, c); err != nil {
			return err
		}

		return web.Respond(ctx, w, detail{"Discount code successfully applied"}, http.StatusOK)
	}
}

func fetchTarget(ctx context.Context, w http.ResponseWriter, r *http.Request, db *sqlx.DB) (product.Product, error) {
	var ap actionPayload
	if err := web.Decode(w, r, &ap); err != nil {
		return product.Product{}, weberr.BadRequest(err)
	}

	p, err := product.Fetch(ctx, db, ap.Product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return product.Product{}, weberr.NewError(err, "Product does not exist", http.StatusNotFound)
		}
		return product.Product{}, err
	}

	return p, nil
}
