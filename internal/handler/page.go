package handler

import (
	"html/template"
	"log/slog"
	"net/http"
)

type PageHandler struct {
	tmpl   *template.Template
	logger *slog.Logger
}

// NewPageHandler loads the single-page template. The one page carries
// the whole client flow: login, register, and the pricing grid, gated
// by the session probe on load.
func NewPageHandler(templatesDir string, logger *slog.Logger) *PageHandler {
	if templatesDir == "" {
		templatesDir = "web/templates"
	}
	tmpl := template.Must(template.ParseFiles(templatesDir + "/index.html"))
	return &PageHandler{tmpl: tmpl, logger: logger}
}

// Index renders the demo page.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, nil); err != nil {
		h.logger.Error("render page", "error", err)
	}
}
