package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/stagedemo/internal/model"
	"github.com/dukerupert/stagedemo/internal/store"
)

type AccountsHandler struct {
	accountStore *store.AccountStore
	logger       *slog.Logger
}

func NewAccountsHandler(as *store.AccountStore, logger *slog.Logger) *AccountsHandler {
	return &AccountsHandler{accountStore: as, logger: logger}
}

// List returns all demo accounts. Passwords never serialize.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountStore.List()
	if err != nil {
		h.logger.Error("list accounts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []model.Account{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}
