package address

import (
	"context"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/mehrshop/bazaar/api/web"
	"github.com/mehrshop/bazaar/api/weberr"
	"github.com/mehrshop/bazaar/core/claims"
)

// HandleList returns the caller's addresses, default first.
func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		as, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, as, http.StatusOK)
	}
}
