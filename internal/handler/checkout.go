package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/stagedemo/internal/checkout"
	"github.com/dukerupert/stagedemo/internal/stage"
	"github.com/dukerupert/stagedemo/internal/store"
)

// SessionMinter creates a checkout session and returns its redirect URL.
type SessionMinter interface {
	Create(ctx context.Context, userIdentifier, planIdentifier, origin string) (string, error)
}

type CheckoutHandler struct {
	orchestrator SessionMinter
	accountStore *store.AccountStore
	logger       *slog.Logger
}

func NewCheckoutHandler(o SessionMinter, as *store.AccountStore, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		orchestrator: o,
		accountStore: as,
		logger:       logger,
	}
}

// Create handles POST /checkout: validates the requested plan and
// returns the hosted-checkout redirect URL minted by Stage.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity.Username == "" {
		http.Error(w, "you must be logged in to checkout", http.StatusUnauthorized)
		return
	}

	var req struct {
		PlanIdentifier string `json:"planIdentifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PlanIdentifier == "" {
		http.Error(w, "a plan identifier is required", http.StatusBadRequest)
		return
	}

	account, err := h.accountStore.GetByUsername(identity.Username)
	if err != nil || account == nil {
		h.logger.Error("checkout account lookup", "error", err, "username", identity.Username)
		http.Error(w, "account not found", http.StatusUnauthorized)
		return
	}

	url, err := h.orchestrator.Create(r.Context(), account.ExternalID, req.PlanIdentifier, requestOrigin(r))
	if errors.Is(err, checkout.ErrPlanUnavailable) {
		http.Error(w, "plan "+req.PlanIdentifier+" is not available or not found", http.StatusConflict)
		return
	}
	var ue *stage.UpstreamError
	if errors.As(err, &ue) {
		h.logger.Error("checkout upstream", "error", err)
		http.Error(w, "subscription platform unavailable", http.StatusBadGateway)
		return
	}
	if err != nil {
		h.logger.Error("create checkout", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

// requestOrigin mirrors the browser's Origin header back as the
// checkout success and cancel target, falling back to the request host.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
