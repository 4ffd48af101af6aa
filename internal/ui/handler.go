package ui

import (
	"encoding/json"
	"net/http"

	"github.com/thep200/github-graph-crawler/cfg"
	"github.com/thep200/github-graph-crawler/internal/crawler"
	"github.com/thep200/github-graph-crawler/internal/store"
	"github.com/thep200/github-graph-crawler/pkg/log"
)

// Handler serves the status endpoints.
type Handler struct {
	Logger  log.Logger
	Config  *cfg.Config
	Store   store.Store
	Crawler *crawler.Crawler
}

func NewHandler(logger log.Logger, config *cfg.Config, st store.Store, cr *crawler.Crawler) (*Handler, error) {
	return &Handler{
		Logger:  logger,
		Config:  config,
		Store:   st,
		Crawler: cr,
	}, nil
}

// RegisterRoutes sets up the HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/counts", h.getCounts)
	mux.HandleFunc("/api/documents", h.getDocuments)
	mux.HandleFunc("/api/stats", h.getStats)
	mux.HandleFunc("/healthz", h.getHealth)
}

// countedTypes are the document families surfaced on the counts endpoint.
var countedTypes = []string{
	"org", "user", "repo", "team", "commit", "pull_request", "issue",
	"issue_comment", "review_comment", "commit_comment", "deployment", "status",
}

func (h *Handler) getCounts(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int64{}
	for _, docType := range countedTypes {
		count, err := h.Store.Count(r.Context(), docType)
		if err != nil {
			h.Logger.Error(r.Context(), "Failed to count %s documents: %v", docType, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		counts[docType] = count
	}

	total, err := h.Store.Count(r.Context(), "")
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	counts["total"] = total

	h.writeJSON(w, r, counts)
}

func (h *Handler) getDocuments(w http.ResponseWriter, r *http.Request) {
	docType := r.URL.Query().Get("type")
	if docType == "" {
		http.Error(w, "Missing type parameter", http.StatusBadRequest)
		return
	}

	summaries, err := h.Store.List(r.Context(), docType)
	if err != nil {
		h.Logger.Error(r.Context(), "Failed to list %s documents: %v", docType, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, r, summaries)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats := crawler.Stats{}
	if h.Crawler != nil {
		stats = h.Crawler.Stats()
	}
	h.writeJSON(w, r, stats)
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error(r.Context(), "Failed to encode response: %v", err)
	}
}
