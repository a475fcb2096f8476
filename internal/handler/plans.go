package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/stagedemo/internal/catalog"
	"github.com/dukerupert/stagedemo/internal/model"
	"github.com/dukerupert/stagedemo/internal/stage"
	"github.com/dukerupert/stagedemo/internal/store"
)

type PlansHandler struct {
	catalog      *catalog.Catalog
	accountStore *store.AccountStore
	logger       *slog.Logger
}

func NewPlansHandler(c *catalog.Catalog, as *store.AccountStore, logger *slog.Logger) *PlansHandler {
	return &PlansHandler{
		catalog:      c,
		accountStore: as,
		logger:       logger,
	}
}

// List serves the purchasable (non-draft) plan catalog. Public: the
// pricing page shows plans before login, and no credential leaves the
// server either way.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.catalog.ListPurchasable(r.Context())
	if err != nil {
		h.writeUpstream(w, "list plans", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.PlanList{Items: plans})
}

// Subscription serves the authenticated user's current plan alongside
// the purchasable catalog, driving the "Currently Subscribed" state.
func (h *PlansHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	account, err := h.accountStore.GetByUsername(identity.Username)
	if err != nil || account == nil {
		h.logger.Error("subscription account lookup", "error", err, "username", identity.Username)
		http.Error(w, "account not found", http.StatusUnauthorized)
		return
	}

	up, err := h.catalog.SubscriptionForUser(r.Context(), account.ExternalID)
	if err != nil {
		h.writeUpstream(w, "get subscription", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(up)
}

func (h *PlansHandler) writeUpstream(w http.ResponseWriter, op string, err error) {
	var ue *stage.UpstreamError
	if errors.As(err, &ue) {
		h.logger.Error(op, "error", err)
		http.Error(w, "subscription platform unavailable", http.StatusBadGateway)
		return
	}
	h.logger.Error(op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
