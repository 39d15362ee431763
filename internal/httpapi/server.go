// Package httpapi exposes the search orchestrator over HTTP. The adapter
// stays thin: it parses request bodies, invokes the orchestrator, and
// serializes responses; all policy lives below it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/joelkehle/patent-scout/internal/apperr"
	"github.com/joelkehle/patent-scout/internal/history"
	"github.com/joelkehle/patent-scout/internal/patentapi"
	"github.com/joelkehle/patent-scout/internal/report"
	"github.com/joelkehle/patent-scout/internal/search"
)

type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

type PDFRenderer interface {
	Available() bool
	Render(ctx context.Context, htmlDoc string) ([]byte, error)
}

// Deps carries everything the server needs. Upstream, History and PDF may
// be nil; the corresponding routes then report the degraded state instead
// of failing at startup.
type Deps struct {
	Orchestrator Searcher
	Upstream     search.Upstream
	AIConfigured bool
	History      HistoryReader
	PDF          PDFRenderer
	RateRPS      float64
	RateBurst    int
}

type Server struct {
	deps    Deps
	limiter *rate.Limiter
}

func NewServer(deps Deps) http.Handler {
	if deps.RateRPS <= 0 {
		deps.RateRPS = 10
	}
	if deps.RateBurst <= 0 {
		deps.RateBurst = 20
	}
	s := &Server{
		deps:    deps,
		limiter: rate.NewLimiter(rate.Limit(deps.RateRPS), deps.RateBurst),
	}

	r := chi.NewRouter()
	r.Use(s.corsMiddleware, s.rateLimitMiddleware, logMiddleware)
	r.Post("/v1/search", s.handleSearch)
	r.Post("/v1/search/report", s.handleSearchReport)
	r.Get("/v1/history", s.handleHistory)
	r.Get("/v1/health", s.handleHealth)
	r.Get("/v1/test-patents", s.handleTestPatents)
	r.Get("/v1/test-ai", s.handleTestAI)
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps any error to the single-string error body contract.
// Callers never see a partial or malformed JSON body.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		writeJSON(w, ae.Status, map[string]string{"error": ae.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error."})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many requests."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("http method=%s path=%s status=%d duration_ms=%d", r.Method, r.URL.Path, rec.status, time.Since(start).Milliseconds())
	})
}

func (s *Server) decodeSearchRequest(w http.ResponseWriter, r *http.Request) (search.Request, bool) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid JSON body."))
		return req, false
	}
	return req, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearchRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.deps.Orchestrator.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchReport(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearchRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.deps.Orchestrator.Search(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	htmlDoc, err := report.BuildHTML(resp)
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "pdf" {
		if s.deps.PDF == nil || !s.deps.PDF.Available() {
			writeError(w, apperr.New(apperr.CodeUpstreamUnavailable, "PDF rendering unavailable: no Chrome binary found."))
			return
		}
		pdf, err := s.deps.PDF.Render(r.Context(), htmlDoc)
		if err != nil {
			writeError(w, apperr.Newf(apperr.CodeInternal, "render pdf: %v", err))
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(htmlDoc))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, apperr.NotFound("Search history is not enabled."))
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	// The reader contract does not promise clamping, so the handler does.
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	entries, err := s.deps.History.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, apperr.Newf(apperr.CodeInternal, "read history: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": entries, "count": len(entries)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"upstream": s.deps.Upstream != nil,
		"ai":       s.deps.AIConfigured,
		"history":  s.deps.History != nil,
		"pdf":      s.deps.PDF != nil && s.deps.PDF.Available(),
	})
}

// handleTestPatents smoke-tests the upstream credential with a one-result
// query, bypassing enrichment entirely.
func (s *Server) handleTestPatents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Upstream == nil {
		writeError(w, apperr.Configuration("Patent service API key not configured."))
		return
	}
	records, err := s.deps.Upstream.Search(r.Context(), patentapi.SearchRequest{Keywords: "sensor", MaxResults: 1})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "results": len(records)})
}

func (s *Server) handleTestAI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "configured": s.deps.AIConfigured})
}
