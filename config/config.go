package config

import "time"

type Config struct {
	Web     Web
	Cors    Cors
	DB      DB
	Session Session
	Gateway Gateway
	Limiter Limiter
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:bazaar"`
	DisableTLS bool   `conf:"default:true"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

// Gateway holds the settings of the external payment provider. The
// StartPayURL is the template the redirect URL is built from: the
// transaction id returned by the create call is appended to it.
type Gateway struct {
	Pin         string        `conf:"default:sandbox,mask"`
	CreateURL   string        `conf:"default:https://panel.aqayepardakht.ir/api/v2/create"`
	VerifyURL   string        `conf:"default:https://panel.aqayepardakht.ir/api/v2/verify"`
	StartPayURL string        `conf:"default:https://panel.aqayepardakht.ir/startpay/sandbox"`
	CallbackURL string        `conf:"default:http://127.0.0.1:8000/payment/callback"`
	Timeout     time.Duration `conf:"default:10s"`
}

// Limiter bounds how often a single client may hit the public payment
// callback endpoint.
type Limiter struct {
	Burst      int           `conf:"default:5"`
	ExpiryMins int           `conf:"default:30"`
	Interval   time.Duration `conf:"default:1s"`
}
