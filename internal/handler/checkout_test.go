package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/stagedemo/internal/checkout"
	"github.com/dukerupert/stagedemo/internal/database"
	"github.com/dukerupert/stagedemo/internal/model"
	"github.com/dukerupert/stagedemo/internal/stage"
	"github.com/dukerupert/stagedemo/internal/store"
)

type fakeMinter struct {
	url      string
	err      error
	calls    int
	lastUser string
	lastPlan string
	lastOrig string
}

func (f *fakeMinter) Create(ctx context.Context, userIdentifier, planIdentifier, origin string) (string, error) {
	f.calls++
	f.lastUser = userIdentifier
	f.lastPlan = planIdentifier
	f.lastOrig = origin
	return f.url, f.err
}

func setupCheckoutHandler(t *testing.T, minter *fakeMinter) (*CheckoutHandler, *model.Account) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accounts := store.NewAccountStore(db)
	account, err := accounts.Create("alice", "pw1")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	return NewCheckoutHandler(minter, accounts, logger), account
}

func checkoutRequest(identity model.Identity, body string) *http.Request {
	req := httptest.NewRequest("POST", "/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://demo.test")
	if identity.Username != "" {
		req = req.WithContext(WithIdentity(req.Context(), identity))
	}
	return req
}

func TestCheckoutReturnsURL(t *testing.T) {
	minter := &fakeMinter{url: "https://checkout.stripe.com/c/pay_abc"}
	h, account := setupCheckoutHandler(t, minter)

	req := checkoutRequest(model.Identity{ID: account.ID, Username: "alice"}, `{"planIdentifier": "pro-monthly"}`)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["url"] != "https://checkout.stripe.com/c/pay_abc" {
		t.Errorf("url = %q", resp["url"])
	}
	if minter.lastUser != account.ExternalID {
		t.Errorf("minted for %q, want the account's external id %q", minter.lastUser, account.ExternalID)
	}
	if minter.lastPlan != "pro-monthly" {
		t.Errorf("plan = %q", minter.lastPlan)
	}
	if minter.lastOrig != "https://demo.test" {
		t.Errorf("origin = %q, want the request origin", minter.lastOrig)
	}
}

func TestCheckoutUnauthenticated(t *testing.T) {
	minter := &fakeMinter{url: "https://example.test"}
	h, _ := setupCheckoutHandler(t, minter)

	req := checkoutRequest(model.Identity{}, `{"planIdentifier": "pro-monthly"}`)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if minter.calls != 0 {
		t.Error("no mint call may happen without authentication")
	}
}

func TestCheckoutMissingPlan(t *testing.T) {
	minter := &fakeMinter{}
	h, account := setupCheckoutHandler(t, minter)

	req := checkoutRequest(model.Identity{ID: account.ID, Username: "alice"}, `{}`)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if minter.calls != 0 {
		t.Error("no mint call may happen without a plan identifier")
	}
}

func TestCheckoutPlanUnavailable(t *testing.T) {
	minter := &fakeMinter{err: checkout.ErrPlanUnavailable}
	h, account := setupCheckoutHandler(t, minter)

	req := checkoutRequest(model.Identity{ID: account.ID, Username: "alice"}, `{"planIdentifier": "enterprise"}`)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCheckoutUpstreamDown(t *testing.T) {
	minter := &fakeMinter{err: &stage.UpstreamError{Op: "POST /plans", Status: 503}}
	h, account := setupCheckoutHandler(t, minter)

	req := checkoutRequest(model.Identity{ID: account.ID, Username: "alice"}, `{"planIdentifier": "pro-monthly"}`)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestRequestOriginFallback(t *testing.T) {
	req := httptest.NewRequest("POST", "http://demo.local/checkout", nil)
	req.Header.Del("Origin")
	if got := requestOrigin(req); got != "http://demo.local" {
		t.Errorf("origin = %q, want http://demo.local", got)
	}
}
