package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mehrshop/bazaar/api/web"
	"github.com/mehrshop/bazaar/api/weberr"
	"github.com/mehrshop/bazaar/config"
	"github.com/mehrshop/bazaar/core/claims"
	"github.com/mehrshop/bazaar/core/payment"
	"github.com/mehrshop/bazaar/validate"
)

type SubscriptionNew struct {
	Plan string `json:"plan" validate:"required,oneof=monthly yearly"`
}

type subscriptionCreated struct {
	SubscriptionID string `json:"subscription_id"`
	Amount         int    `json:"amount"`
	PaymentURL     string `json:"payment_url"`
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		s, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return web.Respond(ctx, w, []Subscription{}, http.StatusOK)
			}
			return err
		}

		return web.Respond(ctx, w, []Subscription{s}, http.StatusOK)
	}
}

// HandleCreate persists a plan purchase and asks the gateway for its
// payment URL. Like orders, the record is committed before the gateway
// is contacted so a gateway failure leaves a resumable unpaid row.
func HandleCreate(db *sqlx.DB, gw payment.Gateway, cfg config.Gateway) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var sn SubscriptionNew
		if err := web.Decode(w, r, &sn); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(sn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		// One subscription per user.
		if _, err := FetchByUser(ctx, db, clm.UserID); err == nil {
			err := errors.New("user already has a subscription")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		s, err := New(validate.GenerateID(), clm.UserID, sn.Plan, time.Now().UTC())
		if err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := Create(ctx, db, s); err != nil {
			return fmt.Errorf("creating subscription for user[%s]: %w", clm.UserID, err)
		}

		setup, err := gw.Request(ctx, s.Price, cfg.CallbackURL+"?type=subscription")
		if err != nil {
			if errors.Is(err, payment.ErrDeclined) {
				return weberr.NewError(err, "Failed to initiate payment", http.StatusBadRequest)
			}
			return fmt.Errorf("requesting payment for subscription[%s]: %w", s.ID, err)
		}

		if err := SetTransactionID(ctx, db, s.ID, setup.TransactionID); err != nil {
			return err
		}

		created := subscriptionCreated{
			SubscriptionID: s.ID,
			Amount:         s.Price,
			PaymentURL:     setup.PaymentURL,
		}
		return web.Respond(ctx, w, created, http.StatusCreated)
	}
}
