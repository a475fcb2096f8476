package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/stagedemo/internal/catalog"
	"github.com/dukerupert/stagedemo/internal/checkout"
	"github.com/dukerupert/stagedemo/internal/handler"
	"github.com/dukerupert/stagedemo/internal/middleware"
	"github.com/dukerupert/stagedemo/internal/session"
	"github.com/dukerupert/stagedemo/internal/stage"
	"github.com/dukerupert/stagedemo/internal/store"
)

type Server struct {
	db           *sql.DB
	accountStore *store.AccountStore
	sessions     *session.Manager
	stageClient  *stage.Client
	authH        *handler.AuthHandler
	checkoutH    *handler.CheckoutHandler
	plansH       *handler.PlansHandler
	accountsH    *handler.AccountsHandler
	pageH        *handler.PageHandler
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

type Config struct {
	SessionSecret string
	TemplatesDir  string
}

func New(db *sql.DB, stageClient *stage.Client, cfg Config, logger *slog.Logger) *Server {
	accountStore := store.NewAccountStore(db)
	sessions := session.NewManager(cfg.SessionSecret)
	cat := catalog.New(stageClient)
	orchestrator := checkout.New(stageClient)

	return &Server{
		db:           db,
		accountStore: accountStore,
		sessions:     sessions,
		stageClient:  stageClient,
		authH:        handler.NewAuthHandler(accountStore, sessions, stageClient, logger.With("component", "auth")),
		checkoutH:    handler.NewCheckoutHandler(orchestrator, accountStore, logger.With("component", "checkout")),
		plansH:       handler.NewPlansHandler(cat, accountStore, logger.With("component", "plans")),
		accountsH:    handler.NewAccountsHandler(accountStore, logger.With("component", "accounts")),
		pageH:        handler.NewPageHandler(cfg.TemplatesDir, logger.With("component", "page")),
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.pageH.Index)
	mux.HandleFunc("GET /health", s.healthCheck)

	rateLimit := middleware.RateLimit(s.rateLimiter, 10, time.Minute)
	mux.Handle("POST /register", rateLimit(http.HandlerFunc(s.authH.Register)))
	mux.Handle("POST /login", rateLimit(http.HandlerFunc(s.authH.Login)))
	mux.HandleFunc("GET /logout", s.authH.Logout)
	mux.HandleFunc("GET /isLoggedIn", s.authH.IsLoggedIn)

	mux.HandleFunc("GET /api/plans", s.plansH.List)
	mux.HandleFunc("GET /api/accounts", s.accountsH.List)

	authMw := middleware.RequireAuth(s.sessions)
	mux.Handle("GET /api/subscription", authMw(http.HandlerFunc(s.plansH.Subscription)))
	mux.Handle("POST /checkout", authMw(rateLimit(http.HandlerFunc(s.checkoutH.Create))))

	return middleware.RequestLogger(s.logger)(mux)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
