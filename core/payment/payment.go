// Package payment isolates the external gateway's wire format behind a
// small interface, so the order and subscription flows never see the
// provider's JSON and tests can swap in a fake.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mehrshop/bazaar/config"
)

// ErrDeclined marks a gateway that answered but said no. Every other
// error from the client is a transport problem and may be retried.
var ErrDeclined = errors.New("declined by payment gateway")

// Setup is the result of a successful create call: the id the gateway
// will use in its callback and the URL to redirect the buyer to.
type Setup struct {
	TransactionID string
	PaymentURL    string
}

type Gateway interface {
	Request(ctx context.Context, amount int, callbackURL string) (Setup, error)
	Verify(ctx context.Context, transID string, amount int) error
}

type Client struct {
	cfg  config.Gateway
	http *http.Client
}

func NewClient(cfg config.Gateway) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type createPayload struct {
	Pin      string `json:"pin"`
	Amount   int    `json:"amount"`
	Callback string `json:"callback"`
}

type verifyPayload struct {
	Pin     string `json:"pin"`
	Amount  int    `json:"amount"`
	TransID string `json:"transid"`
}

type gatewayResponse struct {
	Status  string `json:"status"`
	TransID string `json:"transid"`
}

// Request asks the gateway for a new transaction. The amount must be
// positive: an over-discounted total is refused here rather than sent
// to the provider.
func (c *Client) Request(ctx context.Context, amount int, callbackURL string) (Setup, error) {
	if amount <= 0 {
		return Setup{}, fmt.Errorf("amount %d is not payable: %w", amount, ErrDeclined)
	}

	resp, err := c.post(ctx, c.cfg.CreateURL, createPayload{
		Pin:      c.cfg.Pin,
		Amount:   amount,
		Callback: callbackURL,
	})
	if err != nil {
		return Setup{}, err
	}

	if resp.Status != "success" {
		return Setup{}, fmt.Errorf("create returned status %q: %w", resp.Status, ErrDeclined)
	}

	return Setup{
		TransactionID: resp.TransID,
		PaymentURL:    c.cfg.StartPayURL + "/" + resp.TransID,
	}, nil
}

// Verify re-checks a transaction with the gateway after its callback.
func (c *Client) Verify(ctx context.Context, transID string, amount int) error {
	resp, err := c.post(ctx, c.cfg.VerifyURL, verifyPayload{
		Pin:     c.cfg.Pin,
		Amount:  amount,
		TransID: transID,
	})
	if err != nil {
		return err
	}

	if resp.Status != "success" {
		return fmt.Errorf("verify returned status %q: %w", resp.Status, ErrDeclined)
	}

	return nil
}

func (c *Client) post(ctx context.Context, url string, payload interface{}) (gatewayResponse, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return gatewayResponse{}, fmt.Errorf("encoding gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return gatewayResponse{}, fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w, err := c.http.Do(req)
	if err != nil {
		return gatewayResponse{}, fmt.Errorf("reaching payment gateway: %w", err)
	}
	defer w.Body.Close()

	var resp gatewayResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		return gatewayResponse{}, fmt.Errorf("decoding gateway response: %w", err)
	}

	return resp, nil
}
