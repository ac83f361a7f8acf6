package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/mehrshop/bazaar/api/middleware"
	"github.com/mehrshop/bazaar/api/web"
	"github.com/mehrshop/bazaar/config"
	"github.com/mehrshop/bazaar/core/address"
	"github.com/mehrshop/bazaar/core/auth"
	"github.com/mehrshop/bazaar/core/cart"
	"github.com/mehrshop/bazaar/core/order"
	"github.com/mehrshop/bazaar/core/payment"
	"github.com/mehrshop/bazaar/core/product"
	"github.com/mehrshop/bazaar/core/subscription"
	"github.com/mehrshop/bazaar/core/user"
	"github.com/mehrshop/bazaar/rate"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin      string
	Log             logrus.FieldLogger
	DB              *sqlx.DB
	Session         *scs.SessionManager
	Gateway         payment.Gateway
	GatewayCfg      config.Gateway
	CallbackLimiter *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)

	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)

	a.Handle(http.MethodGet, "/addresses", address.HandleList(cfg.DB), authen)

	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/cart/add", cart.HandleAdd(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/cart/decrease", cart.HandleDecrease(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/cart/remove", cart.HandleRemove(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/cart/clear", cart.HandleClear(cfg.Session))
	a.Handle(http.MethodPost, "/cart/discount", cart.HandleApplyDiscount(cfg.DB, cfg.Session))

	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), authen)
	a.Handle(http.MethodPost, "/orders", order.HandleCreate(cfg.DB, cfg.Session, cfg.Gateway, cfg.GatewayCfg), authen)

	a.Handle(http.MethodGet, "/subscriptions", subscription.HandleList(cfg.DB), authen)
	a.Handle(http.MethodPost, "/subscriptions", subscription.HandleCreate(cfg.DB, cfg.Gateway, cfg.GatewayCfg), authen)

	// The gateway cannot authenticate; the limiter is the only guard.
	a.Handle(http.MethodPost, "/payment/callback", order.HandleCallback(cfg.DB, cfg.Gateway),
		middleware.RateLimit(cfg.CallbackLimiter))

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
