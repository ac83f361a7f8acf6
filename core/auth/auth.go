// Package auth gives handlers a session-backed identity. It is kept
// deliberately thin: login, logout and the middleware that turns the
// session into claims. Account management lives elsewhere.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/mehrshop/bazaar/api/web"
	"github.com/mehrshop/bazaar/api/weberr"
	"github.com/mehrshop/bazaar/core/claims"
	"github.com/mehrshop/bazaar/core/user"
	"github.com/mehrshop/bazaar/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionUserID = "user_id"
	sessionRole   = "role"
)

// LoadAndSave adapts the scs middleware to the web.Handler chain.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			sh := session.LoadAndSave(http.HandlerFunc(func(ww http.ResponseWriter, rr *http.Request) {
				err = handler(rr.Context(), ww, rr)
			}))
			sh.ServeHTTP(w, r)

			return err
		}
		return h
	}
	return m
}

// Authenticate requires a logged-in session and stores its identity as
// claims in the context.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := session.GetString(ctx, sessionUserID)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			clm := claims.Claims{
				UserID: userID,
				Role:   session.GetString(ctx, sessionRole),
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

func Admin(session *scs.SessionManager) web.Middleware {
	authen := Authenticate(session)
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !claims.IsAdmin(ctx) {
				return weberr.NotAuthorized(errors.New("user is not an admin"))
			}

			return handler(ctx, w, r)
		}
		return authen(h)
	}
	return m
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HandleLogin(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var lp loginPayload
		if err := web.Decode(w, r, &lp); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(lp); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		u, err := user.FetchByEmail(ctx, db, lp.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotAuthorized(err)
			}
			return err
		}

		if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(lp.Password)); err != nil {
			return weberr.NotAuthorized(err)
		}

		// New identity, new session token.
		if err := session.RenewToken(ctx); err != nil {
			return err
		}
		session.Put(ctx, sessionUserID, u.ID)
		session.Put(ctx, sessionRole, u.Role)

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(ctx); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
