package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/mehrshop/bazaar/api/web"
	"github.com/mehrshop/bazaar/api/weberr"
	"github.com/mehrshop/bazaar/config"
	"github.com/mehrshop/bazaar/core/address"
	"github.com/mehrshop/bazaar/core/cart"
	"github.com/mehrshop/bazaar/core/claims"
	"github.com/mehrshop/bazaar/core/payment"
	"github.com/mehrshop/bazaar/core/subscription"
	"github.com/mehrshop/bazaar/database"
	"github.com/mehrshop/bazaar/validate"
)

type OrderNew struct {
	AddressID    string `json:"address_id" validate:"required"`
	FirstName    string `json:"first_name" validate:"required,max=50"`
	LastName     string `json:"last_name" validate:"required,max=50"`
	Phone        string `json:"phone" validate:"required,max=11"`
	DiscountCode string `json:"discount_code"`
}

type orderCreated struct {
	OrderID    string `json:"order_id"`
	Amount     int    `json:"amount"`
	PaymentURL string `json:"payment_url"`
}

type orderView struct {
	Order
	Items     []Item `json:"items"`
	TotalCost int    `json:"totalCost"`
	PostCost  int    `json:"postCost"`
	FinalCost int    `json:"finalCost"`
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		orders, err := ListByBuyer(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing orders for user[%s]: %w", clm.UserID, err)
		}

		views := make([]orderView, 0, len(orders))
		for _, o := range orders {
			items, err := FetchItems(ctx, db, o.ID)
			if err != nil {
				return fmt.Errorf("fetching items of order[%s]: %w", o.ID, err)
			}

			views = append(views, orderView{
				Order:     o,
				Items:     items,
				TotalCost: TotalCost(items),
				PostCost:  PostCost(items),
				FinalCost: FinalCost(o, items),
			})
		}

		return web.Respond(ctx, w, views, http.StatusOK)
	}
}

// HandleCreate turns the session cart into a persisted order and asks
// the gateway for a payment URL. The order and its items are written in
// one transaction, committed before the gateway is contacted: a
// gateway failure leaves a persisted, unpaid, resumable order.
func HandleCreate(db *sqlx.DB, session *scs.SessionManager, gw payment.Gateway, cfg config.Gateway) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var on OrderNew
		if err := web.Decode(w, r, &on); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(on); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		c := cart.FromSession(ctx, session)
		if c.Len() == 0 {
			err := errors.New("cart is empty")
			return weberr.NewError(err, "Cart is empty", http.StatusBadRequest)
		}

		addr, err := address.Fetch(ctx, db, on.AddressID, clm.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				msg := fmt.Sprintf("Address with ID %s does not exist", on.AddressID)
				return weberr.NewError(err, msg, http.StatusBadRequest)
			}
			return fmt.Errorf("fetching address[%s]: %w", on.AddressID, err)
		}

		code, amount, err := resolveDiscount(ctx, db, clm.UserID, on.DiscountCode, c)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		ord := Order{
			ID:             validate.GenerateID(),
			BuyerID:        clm.UserID,
			AddressID:      addr.ID,
			FirstName:      on.FirstName,
			LastName:       on.LastName,
			Phone:          on.Phone,
			DiscountCode:   code,
			DiscountAmount: amount,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		// Order and items land together or not at all.
		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := Create(ctx, tx, ord); err != nil {
				return err
			}

			for productID, e := range c.Entries {
				it := Item{
					ID:        validate.GenerateID(),
					OrderID:   ord.ID,
					ProductID: productID,
					Price:     e.UnitPrice,
					Quantity:  e.Quantity,
					Weight:    e.UnitWeight,
					CreatedAt: now,
				}
				if err := CreateItem(ctx, tx, it); err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("creating order for user[%s]: %w", clm.UserID, err)
		}

		final := c.FinalPrice(amount)
		setup, err := gw.Request(ctx, final, cfg.CallbackURL+"?type=order")
		if err != nil {
			if errors.Is(err, payment.ErrDeclined) {
				return weberr.NewError(err, "Failed to initiate payment", http.StatusBadRequest)
			}
			return fmt.Errorf("requesting payment for order[%s]: %w", ord.ID, err)
		}

		if err := SetTransactionID(ctx, db, ord.ID, setup.TransactionID); err != nil {
			return err
		}

		created := orderCreated{
			OrderID:    ord.ID,
			Amount:     final,
			PaymentURL: setup.PaymentURL,
		}
		return web.Respond(ctx, w, created, http.StatusCreated)
	}
}

// resolveDiscount applies the coupon/subscription precedence: a
// submitted code must match the one applied to the session and uses the
// cart's live amount; with no code submitted, an active subscription
// grants its plan discount; a session code the client did not confirm,
// or a code that was never applied, fails validation. The two sources
// are never combined.
func resolveDiscount(ctx context.Context, db *sqlx.DB, userID string, submitted string, c cart.Cart) (string, int, error) {
	if submitted != "" {
		if submitted != c.DiscountCode {
			err := fmt.Errorf("code %q was not applied to the cart", submitted)
			return "", 0, weberr.NewError(err, "Invalid or missing discount code", http.StatusBadRequest)
		}

		amount, err := cart.LiveDiscountAmount(ctx, db, c)
		if err != nil {
			return "", 0, err
		}
		return submitted, amount, nil
	}

	sub, err := subscription.FetchByUser(ctx, db, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", 0, fmt.Errorf("fetching subscription of user[%s]: %w", userID, err)
	}

	now := time.Now().UTC()
	if err == nil && sub.Valid(now) {
		return sub.Plan, c.DiscountAmount(sub.DiscountPercent(now)), nil
	}

	if c.DiscountCode != "" {
		err := errors.New("session discount code was not confirmed by the client")
		return "", 0, weberr.NewError(err, "Invalid or missing discount code", http.StatusBadRequest)
	}

	return "", 0, nil
}

type callbackPayload struct {
	TransID string `json:"transid"`
	Status  string `json:"status"`
}

type callbackResult struct {
	Message string `json:"message"`
}

// HandleCallback receives the gateway's asynchronous notification. It
// is unauthenticated and must tolerate replays: a callback for an
// already settled record answers success without contacting the
// gateway again.
func HandleCallback(db *sqlx.DB, gw payment.Gateway) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cp callbackPayload
		if err := web.Decode(w, r, &cp); err != nil {
			return weberr.BadRequest(err)
		}

		switch typ := web.QueryParam(r, "type"); typ {
		case "order":
			return settleOrder(ctx, w, db, gw, cp)
		case "subscription":
			return settleSubscription(ctx, w, db, gw, cp)
		default:
			err := fmt.Errorf("unknown payment type %q", typ)
			return weberr.NewError(err, "Invalid payment type", http.StatusBadRequest)
		}
	}
}

func settleOrder(ctx context.Context, w http.ResponseWriter, db *sqlx.DB, gw payment.Gateway, cp callbackPayload) error {
	ord, err := FetchByTransactionID(ctx, db, cp.TransID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weberr.NewError(err, "Order not found", http.StatusNotFound)
		}
		return fmt.Errorf("fetching order bound to payment[%s]: %w", cp.TransID, err)
	}

	if ord.Paid {
		return web.Respond(ctx, w, callbackResult{"Payment successful"}, http.StatusOK)
	}

	if cp.Status != "1" {
		return paymentFailed(fmt.Errorf("callback status %q for order[%s]", cp.Status, ord.ID))
	}

	items, err := FetchItems(ctx, db, ord.ID)
	if err != nil {
		return fmt.Errorf("fetching items of order[%s]: %w", ord.ID, err)
	}

	if err := gw.Verify(ctx, cp.TransID, FinalCost(ord, items)); err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			return paymentFailed(err)
		}
		return fmt.Errorf("verifying payment[%s]: %w", cp.TransID, err)
	}

	// A concurrent duplicate may have settled first; that is still a
	// success for this caller.
	if _, err := MarkPaid(ctx, db, ord.ID); err != nil {
		return err
	}

	return web.Respond(ctx, w, callbackResult{"Payment successful"}, http.StatusOK)
}

func settleSubscription(ctx context.Context, w http.ResponseWriter, db *sqlx.DB, gw payment.Gateway, cp callbackPayload) error {
	sub, err := subscription.FetchByTransactionID(ctx, db, cp.TransID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weberr.NewError(err, "Subscription not found", http.StatusNotFound)
		}
		return fmt.Errorf("fetching subscription bound to payment[%s]: %w", cp.TransID, err)
	}

	if sub.Paid {
		return web.Respond(ctx, w, callbackResult{"Payment successful"}, http.StatusOK)
	}

	if cp.Status != "1" {
		return paymentFailed(fmt.Errorf("callback status %q for subscription[%s]", cp.Status, sub.ID))
	}

	if err := gw.Verify(ctx, cp.TransID, sub.Price); err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			return paymentFailed(err)
		}
		return fmt.Errorf("verifying payment[%s]: %w", cp.TransID, err)
	}

	if _, err := subscription.MarkPaid(ctx, db, sub.ID); err != nil {
		return err
	}

	return web.Respond(ctx, w, callbackResult{"Payment successful"}, http.StatusOK)
}

func paymentFailed(err error) error {
	return weberr.Wrap(
		&weberr.RequestError{Err: err},
		weberr.WithResponse(&callbackResult{"Payment failed"}, http.StatusBadRequest),
	)
}
