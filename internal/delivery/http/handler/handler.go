package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/user/kb-crawler/internal/delivery/http/request"
	"github.com/user/kb-crawler/internal/delivery/http/response"
	"github.com/user/kb-crawler/internal/entity"
	"github.com/user/kb-crawler/internal/repository"
	"github.com/user/kb-crawler/internal/usecase"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	crawler      usecase.Crawler
	runs         usecase.CrawlRuns
	ingestion    usecase.Ingestion
	defaultDepth int
	checks       map[string]HealthCheck
	logger       *zap.Logger
}

func NewHandler(crawler usecase.Crawler, runs usecase.CrawlRuns, ingestion usecase.Ingestion, defaultDepth int, logger *zap.Logger) *Handler {
	return &Handler{
		crawler:      crawler,
		runs:         runs,
		ingestion:    ingestion,
		defaultDepth: defaultDepth,
		logger:       logger,
	}
}

// HandleCrawl discovers and extracts the pages of a website or sitemap.
func (h *Handler) HandleCrawl(w http.ResponseWriter, r *http.Request) {
	var req request.CrawlRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" || req.Type == "" {
		h.writeJSONError(w, "url and type are required", http.StatusBadRequest)
		return
	}
	mode, err := entity.ParseCrawlMode(req.Type)
	if err != nil {
		h.writeJSONError(w, `type must be "website" or "sitemap"`, http.StatusBadRequest)
		return
	}
	depth := h.defaultDepth
	if req.Depth != nil {
		depth = *req.Depth
	}

	outcome, err := h.crawler.Crawl(r.Context(), entity.CrawlRequest{
		SeedURL:  req.URL,
		Mode:     mode,
		MaxDepth: depth,
	}, usecase.CrawlOptions{FailurePolicy: req.OnError})
	if err != nil {
		h.writeCrawlError(w, req.URL, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.CrawlResponse{
		Links:    outcome.Results(),
		Failures: outcome.Failures,
		RunID:    outcome.RunID,
	})
}

// HandleExtract returns the full text of the given pages and optionally
// hands them to a chatbot knowledge base.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	var req request.ExtractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Links) == 0 {
		h.writeJSONError(w, "links are required", http.StatusBadRequest)
		return
	}

	outcome, err := h.crawler.ExtractContentFromPages(r.Context(), req.Links, usecase.CrawlOptions{FailurePolicy: req.OnError})
	if err != nil {
		h.writeCrawlError(w, "", err)
		return
	}

	resp := response.ExtractResponse{Pages: outcome.Pages, Failures: outcome.Failures}
	if req.ChatbotID != "" {
		if _, err := h.ingestion.Handoff(r.Context(), req.ChatbotID, outcome); err != nil {
			h.logger.Error("Failed to hand pages to knowledge base", zap.String("chatbot_id", req.ChatbotID), zap.Error(err))
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		resp.Ingested = true
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetCrawlRun returns a recorded crawl and its page failures.
func (h *Handler) HandleGetCrawlRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, failures, err := h.runs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Crawl run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get crawl run", zap.String("run_id", id), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if failures == nil {
		failures = []entity.PageFailure{}
	}
	h.writeJSON(w, http.StatusOK, response.CrawlRunResponse{CrawlRun: run, Failures: failures})
}

// WithHealthChecks registers the dependencies probed by the health endpoint.
func (h *Handler) WithHealthChecks(checks map[string]HealthCheck) *Handler {
	h.checks = checks
	return h
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"status": "ok"}
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthy = false
			h.logger.Error("health check failed", zap.String("component", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !healthy {
		healthStatus["status"] = "degraded"
		h.writeJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	h.writeJSON(w, http.StatusOK, healthStatus)
}

func (h *Handler) writeCrawlError(w http.ResponseWriter, seedURL string, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrNoLinksFound):
		h.writeJSONError(w, "no links found", http.StatusBadRequest)
	case errors.Is(err, repository.ErrCrawlTimeout):
		h.writeJSONError(w, "crawl timed out", http.StatusGatewayTimeout)
	default:
		h.logger.Error("Crawl failed", zap.String("url", seedURL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
