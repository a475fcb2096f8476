package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dukerupert/stagedemo/internal/model"
	"github.com/dukerupert/stagedemo/internal/session"
	"github.com/dukerupert/stagedemo/internal/store"
)

const (
	sessionCookieName = "session"
	userCookieName    = "user"
)

// Registrar registers an external identifier with Stage.
type Registrar interface {
	CreateUser(ctx context.Context, identifier string) error
}

type AuthHandler struct {
	accountStore *store.AccountStore
	sessions     *session.Manager
	registrar    Registrar
	logger       *slog.Logger
}

func NewAuthHandler(as *store.AccountStore, sm *session.Manager, registrar Registrar, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accountStore: as,
		sessions:     sm,
		registrar:    registrar,
		logger:       logger,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a demo account and registers its external identifier
// with Stage. A Stage failure is logged but does not fail registration;
// the local account already exists and the identifier can be registered
// again on a later attempt.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if creds.Username == "" || creds.Password == "" {
		http.Error(w, "a username and password are required", http.StatusBadRequest)
		return
	}

	account, err := h.accountStore.Create(creds.Username, creds.Password)
	if err == store.ErrUsernameTaken {
		http.Error(w, "username already taken", http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("create account", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.registrar != nil {
		if err := h.registrar.CreateUser(r.Context(), account.ExternalID); err != nil {
			h.logger.Error("register user with stage", "error", err, "username", account.Username)
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Login checks the credentials and issues the session cookie pair: the
// signed httpOnly session token, and a client-readable identity blob the
// page uses for display.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if creds.Username == "" || creds.Password == "" {
		http.Error(w, "a username and password are required", http.StatusBadRequest)
		return
	}

	account, err := h.accountStore.GetByUsername(creds.Username)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	// Exact-match comparison: the demo stores passwords as plain text.
	if account == nil || account.Password != creds.Password {
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	identity := model.Identity{ID: account.ID, Username: account.Username}
	token, err := h.sessions.Issue(identity)
	if err != nil {
		h.logger.Error("issue session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	maxAge := int(session.TTL.Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// Cookie values cannot hold raw JSON; the page decodes this with
	// decodeURIComponent.
	userJSON, _ := json.Marshal(identity)
	http.SetCookie(w, &http.Cookie{
		Name:     userCookieName,
		Value:    url.QueryEscape(string(userJSON)),
		Path:     "/",
		MaxAge:   maxAge,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusOK)
}

// Logout clears both cookies unconditionally. Safe to call without a
// session; calling it twice leaves the same state.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{sessionCookieName, userCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
	w.WriteHeader(http.StatusOK)
}

// IsLoggedIn reports whether the request carries a valid session. The
// token is verified, not merely checked for presence.
func (h *AuthHandler) IsLoggedIn(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	if _, err := h.sessions.Validate(cookie.Value); err != nil {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}
