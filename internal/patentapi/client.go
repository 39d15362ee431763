// Package patentapi implements the upstream patent-search client. It builds
// a PatentsView-style query from a keyword request, issues a single call
// bounded by a timeout, and normalizes the heterogeneous response into
// PatentRecord values.
package patentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/joelkehle/patent-scout/internal/apperr"
)

const (
	DefaultBaseURL    = "https://search.patentsview.org"
	grantedPath       = "/api/v1/patent/"
	pregrantPath      = "/api/v1/publication/"
	DefaultMaxResults = 20
	MaxResultsCeiling = 25

	// Lower bound of the default date-range filter. PatentsView full-text
	// coverage starts in 1976.
	earliestDate = "1976-01-01"

	requestTimeout = 15 * time.Second
)

type Config struct {
	APIKey  string
	BaseURL string
	// SimpleQuery issues a plain keyword query with only a size option and
	// no filters. The rich query (default) adds document-type, date-range
	// and sort clauses.
	SimpleQuery bool
	// Detailed requests the richer field set (status, classification,
	// per-inventor and per-assignee detail).
	Detailed   bool
	HTTPClient *http.Client
	Clock      func() time.Time
}

type SearchRequest struct {
	Keywords   string
	MaxResults int
	// ShowGranted selects granted patents; otherwise pre-grant
	// publications are searched.
	ShowGranted bool
}

type Client struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker
}

func NewClient(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("PATENTSVIEW_API_KEY not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "patentsview",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A 401/403/429/4xx verdict is an answer from the upstream, not an
		// outage, and must keep its status mapping no matter how often it
		// repeats. Only transport failures and unavailability trip.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var ae *apperr.Error
			if errors.As(err, &ae) {
				switch ae.Code {
				case apperr.CodeUpstreamAuth, apperr.CodeUpstreamRateLimited, apperr.CodeUpstreamRejected:
					return true
				}
			}
			return false
		},
	})
	return &Client{cfg: cfg, breaker: breaker}, nil
}

// DataSource names the upstream variant that served a request, echoed back
// to the caller in response metadata.
func (c *Client) DataSource(req SearchRequest) string {
	if req.ShowGranted {
		return "patentsview-granted"
	}
	return "patentsview-applications"
}

type upstreamResponse struct {
	Error     bool             `json:"error"`
	Count     int              `json:"count"`
	TotalHits int              `json:"total_hits"`
	Patents   []map[string]any `json:"patents"`
}

// Search issues one upstream query and returns normalized records. It makes
// a single attempt bounded by the client timeout; transient failures are
// surfaced to the orchestrator, not retried here.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]PatentRecord, error) {
	limit := clampMaxResults(req.MaxResults)
	body := c.buildQuery(req.Keywords, limit)

	result, err := c.breaker.Execute(func() (any, error) {
		return c.executeOnce(ctx, c.path(req), body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperr.New(apperr.CodeUpstreamUnavailable, "Patent service temporarily unavailable.")
		}
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, classifyTransportError(err)
	}

	parsed := result.(*upstreamResponse)
	records := make([]PatentRecord, 0, len(parsed.Patents))
	for _, raw := range parsed.Patents {
		records = append(records, normalizeRecord(raw, c.cfg.Detailed))
	}
	return records, nil
}

func (c *Client) path(req SearchRequest) string {
	if req.ShowGranted {
		return grantedPath
	}
	return pregrantPath
}

func (c *Client) executeOnce(ctx context.Context, path string, body map[string]any) (*upstreamResponse, error) {
	payload, _ := json.Marshal(body)
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Newf(apperr.CodeInternal, "build upstream request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer res.Body.Close()
	blob, _ := io.ReadAll(io.LimitReader(res.Body, 2<<20))

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, apperr.New(apperr.CodeUpstreamAuth, "Patent service authentication failed. Check PATENTSVIEW_API_KEY.")
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, apperr.New(apperr.CodeUpstreamRateLimited, "Patent service rate limit exceeded. Try again shortly.")
	case res.StatusCode >= 400:
		return nil, apperr.Newf(apperr.CodeUpstreamRejected, "Patent service returned status %d.", res.StatusCode).WithStatus(res.StatusCode)
	}

	var parsed upstreamResponse
	if err := json.Unmarshal(blob, &parsed); err != nil {
		return nil, apperr.New(apperr.CodeUpstreamRejected, "Patent service returned an unreadable response.").WithStatus(http.StatusBadGateway)
	}
	if parsed.Error {
		return nil, apperr.New(apperr.CodeUpstreamRejected, "Patent service reported a query error.").WithStatus(http.StatusBadGateway)
	}
	if parsed.Patents == nil {
		return nil, apperr.New(apperr.CodeUpstreamRejected, "Patent service response missing patent list.").WithStatus(http.StatusBadGateway)
	}
	return &parsed, nil
}

func (c *Client) buildQuery(keywords string, limit int) map[string]any {
	text := map[string]any{"_or": []any{
		map[string]any{"_text_any": map[string]any{"patent_title": keywords}},
		map[string]any{"_text_any": map[string]any{"patent_abstract": keywords}},
	}}
	if c.cfg.SimpleQuery {
		return map[string]any{
			"q": text,
			"f": fieldList(c.cfg.Detailed),
			"o": map[string]int{"size": limit},
		}
	}
	today := c.cfg.Clock().UTC().Format("2006-01-02")
	q := map[string]any{"_and": []any{
		text,
		map[string]any{"patent_type": "utility"},
		map[string]any{"_gte": map[string]any{"patent_date": earliestDate}},
		map[string]any{"_lte": map[string]any{"patent_date": today}},
	}}
	return map[string]any{
		"q": q,
		"f": fieldList(c.cfg.Detailed),
		"s": []map[string]string{{"application.filing_date": "desc"}, {"patent_id": "asc"}},
		"o": map[string]int{"size": limit, "offset": 0},
	}
}

func fieldList(detailed bool) []string {
	fields := []string{
		"patent_id", "publication_number", "patent_title", "patent_abstract",
		"patent_date", "application.filing_date",
		"inventors.inventor_name_first", "inventors.inventor_name_last",
		"assignees.assignee_organization",
	}
	if detailed {
		fields = append(fields,
			"patent_status", "cpc_at_issue.cpc_subclass_id", "inventors.inventor_city",
		)
	}
	return fields
}

func clampMaxResults(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	if n > MaxResultsCeiling {
		return MaxResultsCeiling
	}
	return n
}

func classifyTransportError(err error) *apperr.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.CodeUpstreamTimeout, "Patent service request timed out.")
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return apperr.New(apperr.CodeUpstreamTimeout, "Patent service request timed out.")
	}
	return apperr.New(apperr.CodeUpstreamUnavailable, fmt.Sprintf("Patent service unreachable: %v", err))
}
