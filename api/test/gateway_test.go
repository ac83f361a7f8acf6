package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// mockGateway fakes the payment provider: create hands out sequential
// transaction ids, verify answers with a configurable status and counts
// its calls so tests can assert idempotency.
type mockGateway struct {
	mu           sync.Mutex
	creates      int
	verifies     int
	verifyStatus string

	lastCreateAmount int
	lastVerifyAmount int

	srv *httptest.Server
}

func newMockGateway(t *testing.T) *mockGateway {
	t.Helper()

	g := &mockGateway{verifyStatus: "success"}

	mux := http.NewServeMux()
	mux.HandleFunc("/create", g.create)
	mux.HandleFunc("/verify", g.verify)

	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)

	return g
}

func (g *mockGateway) URL() string {
	return g.srv.URL
}

func (g *mockGateway) create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Pin      string `json:"pin"`
		Amount   int    `json:"amount"`
		Callback string `json:"callback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	g.creates++
	g.lastCreateAmount = payload.Amount
	transID := fmt.Sprintf("gw-%d", g.creates)
	g.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"transid": transID,
	})
}

func (g *mockGateway) verify(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Pin     string `json:"pin"`
		Amount  int    `json:"amount"`
		TransID string `json:"transid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	g.verifies++
	g.lastVerifyAmount = payload.Amount
	status := g.verifyStatus
	g.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (g *mockGateway) verifyCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifies
}

func (g *mockGateway) setVerifyStatus(s string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyStatus = s
}
