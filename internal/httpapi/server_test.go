package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joelkehle/patent-scout/internal/apperr"
	"github.com/joelkehle/patent-scout/internal/history"
	"github.com/joelkehle/patent-scout/internal/patentapi"
	"github.com/joelkehle/patent-scout/internal/search"
)

type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, req search.Request) (*search.Response, error) {
	switch strings.TrimSpace(req.Keywords) {
	case "":
		return nil, apperr.Validation("No keywords provided.")
	case "ratelimited":
		return nil, apperr.New(apperr.CodeUpstreamRateLimited, "Patent service rate limit exceeded. Try again shortly.")
	case "unauthorized":
		return nil, apperr.New(apperr.CodeUpstreamAuth, "Patent service authentication failed. Check PATENTSVIEW_API_KEY.")
	case "nothing":
		return nil, apperr.NotFound(`No patents found for "nothing".`)
	}
	return &search.Response{
		Patents: []patentapi.PatentRecord{
			{PatentID: "1", Title: "T", Snippet: "s", Abstract: "s", Analysis: "a"},
		},
		Landscape:  "landscape",
		Total:      1,
		DataSource: "patentsview-test",
		Metadata:   search.Metadata{SearchTerm: req.Keywords, ResultCount: 1, Timestamp: "2026-08-24T12:00:00Z"},
	}, nil
}

type fakeUpstream struct{ err error }

func (f *fakeUpstream) Search(context.Context, patentapi.SearchRequest) ([]patentapi.PatentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []patentapi.PatentRecord{{PatentID: "1"}}, nil
}

func (f *fakeUpstream) DataSource(patentapi.SearchRequest) string { return "patentsview-test" }

type fakeHistory struct {
	entries   []history.Entry
	gotLimits []int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	f.gotLimits = append(f.gotLimits, limit)
	return f.entries, nil
}

type fakePDF struct {
	available bool
	out       []byte
}

func (f *fakePDF) Available() bool { return f.available }
func (f *fakePDF) Render(context.Context, string) ([]byte, error) {
	return f.out, nil
}

func newTestServer(mutate func(*Deps)) http.Handler {
	deps := Deps{
		Orchestrator: fakeSearcher{},
		Upstream:     &fakeUpstream{},
		AIConfigured: true,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewServer(deps)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	blob, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(blob))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeErrorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("error body is not JSON: %q", rr.Body.String())
	}
	if len(out) != 1 || out["error"] == "" {
		t.Fatalf("error body must be exactly {\"error\": ...}, got %q", rr.Body.String())
	}
	return out["error"]
}

func TestSearchSuccess(t *testing.T) {
	rr := postJSON(t, newTestServer(nil), "/v1/search", map[string]any{"keywords": "widgets"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type=%q", ct)
	}
	var out search.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 1 || out.DataSource != "patentsview-test" || len(out.Patents) != 1 {
		t.Fatalf("response=%+v", out)
	}
}

func TestSearchBlankKeywords400(t *testing.T) {
	rr := postJSON(t, newTestServer(nil), "/v1/search", map[string]any{"keywords": "  "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	if msg := decodeErrorBody(t, rr); msg != "No keywords provided." {
		t.Fatalf("error=%q", msg)
	}
}

func TestSearchInvalidJSON400(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader("{broken"))
	rr := httptest.NewRecorder()
	newTestServer(nil).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	decodeErrorBody(t, rr)
}

func TestSearchUpstreamErrorMapping(t *testing.T) {
	srv := newTestServer(nil)
	cases := []struct {
		keywords string
		status   int
	}{
		{"ratelimited", 429},
		{"unauthorized", 403},
		{"nothing", 404},
	}
	for _, tc := range cases {
		rr := postJSON(t, srv, "/v1/search", map[string]any{"keywords": tc.keywords})
		if rr.Code != tc.status {
			t.Errorf("keywords=%s status=%d want %d", tc.keywords, rr.Code, tc.status)
		}
		decodeErrorBody(t, rr)
	}
}

func TestOptionsAnsweredWithCORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/search", nil)
	rr := httptest.NewRecorder()
	newTestServer(nil).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("OPTIONS body must be empty, got %q", rr.Body.String())
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing CORS methods header")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := newTestServer(func(d *Deps) {
		d.RateRPS = 0.001
		d.RateBurst = 1
	})
	first := get(t, srv, "/v1/health")
	if first.Code != http.StatusOK {
		t.Fatalf("first status=%d", first.Code)
	}
	second := get(t, srv, "/v1/health")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d want 429", second.Code)
	}
	decodeErrorBody(t, second)
}

func TestHistoryDisabled(t *testing.T) {
	rr := get(t, newTestServer(nil), "/v1/history")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestHistoryEnabled(t *testing.T) {
	srv := newTestServer(func(d *Deps) {
		d.History = &fakeHistory{entries: []history.Entry{{ID: "a", Keywords: "solar"}}}
	})
	rr := get(t, srv, "/v1/history?limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Searches []history.Entry `json:"searches"`
		Count    int             `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || out.Searches[0].Keywords != "solar" {
		t.Fatalf("out=%+v", out)
	}
}

func TestHistoryLimitClampedAtHandler(t *testing.T) {
	fake := &fakeHistory{}
	srv := newTestServer(func(d *Deps) { d.History = fake })
	for _, path := range []string{
		"/v1/history?limit=9999",
		"/v1/history?limit=-1",
		"/v1/history?limit=bogus",
		"/v1/history",
	} {
		if rr := get(t, srv, path); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	want := []int{50, 50, 50, 50}
	for i, got := range fake.gotLimits {
		if got != want[i] {
			t.Errorf("call %d forwarded limit=%d want %d", i, got, want[i])
		}
	}
	if len(fake.gotLimits) != len(want) {
		t.Fatalf("calls=%d want %d", len(fake.gotLimits), len(want))
	}

	if rr := get(t, srv, "/v1/history?limit=7"); rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := fake.gotLimits[len(fake.gotLimits)-1]; got != 7 {
		t.Errorf("in-range limit forwarded as %d want 7", got)
	}
}

func TestHealth(t *testing.T) {
	rr := get(t, newTestServer(nil), "/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "ok" || out["upstream"] != true || out["ai"] != true {
		t.Fatalf("health=%v", out)
	}
}

func TestTestPatentsRoute(t *testing.T) {
	rr := get(t, newTestServer(nil), "/v1/test-patents")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	missing := newTestServer(func(d *Deps) { d.Upstream = nil })
	rr = get(t, missing, "/v1/test-patents")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("missing key status=%d", rr.Code)
	}

	failing := newTestServer(func(d *Deps) {
		d.Upstream = &fakeUpstream{err: apperr.New(apperr.CodeUpstreamAuth, "auth failed")}
	})
	rr = get(t, failing, "/v1/test-patents")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("bad key status=%d", rr.Code)
	}
}

func TestSearchReportHTML(t *testing.T) {
	rr := postJSON(t, newTestServer(nil), "/v1/search/report", map[string]any{"keywords": "widgets"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type=%q", ct)
	}
	if !strings.Contains(rr.Body.String(), "Patent Search Briefing") {
		t.Error("report body missing briefing heading")
	}
}

func TestSearchReportPDF(t *testing.T) {
	srv := newTestServer(func(d *Deps) {
		d.PDF = &fakePDF{available: true, out: []byte("%PDF-1.7 fake")}
	})
	rr := postJSON(t, srv, "/v1/search/report?format=pdf", map[string]any{"keywords": "widgets"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type=%q", ct)
	}
}

func TestSearchReportPDFUnavailable(t *testing.T) {
	rr := postJSON(t, newTestServer(nil), "/v1/search/report?format=pdf", map[string]any{"keywords": "widgets"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
}
