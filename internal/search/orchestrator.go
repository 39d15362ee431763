// Package search orchestrates one patent search: input validation, the
// upstream query, bounded parallel AI enrichment, and response assembly.
package search

import (
	"context"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/patent-scout/internal/apperr"
	"github.com/joelkehle/patent-scout/internal/enrich"
	"github.com/joelkehle/patent-scout/internal/patentapi"
)

// Policy consolidates the knobs that used to diverge between endpoint
// variants: how many records get a real AI call, what status an empty
// result maps to, and which whole-set contracts run.
type Policy struct {
	// EnrichLimit is the size of the result prefix that receives a real
	// per-record AI call. Records beyond it get the rate-limit placeholder.
	EnrichLimit int
	// EmptyResultStatus is 404 or 500.
	EmptyResultStatus int
	// Landscape runs the whole-set landscape narrative.
	Landscape bool
	// StructuredInsights runs the whole-set structured analysis.
	StructuredInsights bool
}

func DefaultPolicy() Policy {
	return Policy{EnrichLimit: 3, EmptyResultStatus: 404, Landscape: true}
}

type Request struct {
	Keywords    string `json:"keywords"`
	MaxResults  int    `json:"maxResults"`
	ShowGranted bool   `json:"showApproved"`
}

type Metadata struct {
	SearchTerm  string `json:"searchTerm"`
	ResultCount int    `json:"resultCount"`
	Timestamp   string `json:"timestamp"`
	Variant     string `json:"variant"`
}

type Response struct {
	Patents    []patentapi.PatentRecord `json:"patents"`
	Landscape  string                   `json:"landscape,omitempty"`
	Insights   *enrich.Insights         `json:"insights,omitempty"`
	Total      int                      `json:"total"`
	DataSource string                   `json:"dataSource"`
	Metadata   Metadata                 `json:"metadata"`
}

// Upstream is the patent-search surface the orchestrator depends on.
type Upstream interface {
	Search(ctx context.Context, req patentapi.SearchRequest) ([]patentapi.PatentRecord, error)
	DataSource(req patentapi.SearchRequest) string
}

// Enricher is the AI surface. All methods are best-effort and never error.
type Enricher interface {
	Configured() bool
	Analyze(ctx context.Context, rec patentapi.PatentRecord) string
	AnalyzeStructured(ctx context.Context, records []patentapi.PatentRecord, searchTerm string) enrich.Insights
	AnalyzeLandscape(ctx context.Context, records []patentapi.PatentRecord, keywords string) string
}

// Recorder persists a search to the history store. Recording is best
// effort; failures are logged and never surfaced.
type Recorder interface {
	Record(ctx context.Context, keywords string, resultCount int, dataSource string) error
}

type Orchestrator struct {
	upstream Upstream
	enricher Enricher
	recorder Recorder
	policy   Policy
	tracer   trace.Tracer
	clock    func() time.Time
}

// NewOrchestrator wires the orchestrator. upstream may be nil (missing
// upstream credential: every search fails with a configuration error) and
// recorder may be nil (history disabled).
func NewOrchestrator(upstream Upstream, enricher Enricher, recorder Recorder, policy Policy) *Orchestrator {
	if policy.EnrichLimit < 0 {
		policy.EnrichLimit = 0
	}
	if policy.EmptyResultStatus != 500 {
		policy.EmptyResultStatus = 404
	}
	return &Orchestrator{
		upstream: upstream,
		enricher: enricher,
		recorder: recorder,
		policy:   policy,
		tracer:   otel.Tracer("patent-scout/search"),
		clock:    time.Now,
	}
}

// WithClock overrides the metadata timestamp source. Test hook.
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// Search runs the full request flow. Errors returned here are always
// *apperr.Error; enrichment failures never appear as errors.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	req.Keywords = strings.TrimSpace(req.Keywords)
	if req.Keywords == "" {
		return nil, apperr.Validation("No keywords provided.")
	}
	if o.upstream == nil {
		return nil, apperr.Configuration("Patent service API key not configured.")
	}

	upReq := patentapi.SearchRequest{
		Keywords:    req.Keywords,
		MaxResults:  req.MaxResults,
		ShowGranted: req.ShowGranted,
	}

	ctx, span := o.tracer.Start(ctx, "search.upstream",
		trace.WithAttributes(attribute.String("search.keywords", req.Keywords)))
	records, err := o.upstream.Search(ctx, upReq)
	span.End()
	if err != nil {
		return nil, err
	}
	dataSource := o.upstream.DataSource(upReq)
	if len(records) == 0 {
		return nil, apperr.Newf(apperr.CodeNotFound, "No patents found for %q.", req.Keywords).
			WithStatus(o.policy.EmptyResultStatus)
	}

	resp := &Response{
		Patents:    o.enrichRecords(ctx, records),
		Total:      len(records),
		DataSource: dataSource,
		Metadata: Metadata{
			SearchTerm:  req.Keywords,
			ResultCount: len(records),
			Timestamp:   o.clock().UTC().Format(time.RFC3339),
			Variant:     o.variant(),
		},
	}
	if o.policy.Landscape {
		resp.Landscape = o.enricher.AnalyzeLandscape(ctx, records, req.Keywords)
	}
	if o.policy.StructuredInsights {
		insights := o.enricher.AnalyzeStructured(ctx, records, req.Keywords)
		resp.Insights = &insights
	}

	if o.recorder != nil {
		if err := o.recorder.Record(ctx, req.Keywords, len(records), dataSource); err != nil {
			log.Printf("search history_record_failed keywords=%q err=%q", req.Keywords, err.Error())
		}
	}
	return resp, nil
}

// enrichRecords runs the bounded per-record fan-out. The first EnrichLimit
// records are analyzed concurrently; every call settles independently, so
// one slow or failed analysis never affects its neighbors. Records beyond
// the prefix get the fixed rate-limit placeholder. Input records are never
// mutated: the output is a copy with Analysis set.
func (o *Orchestrator) enrichRecords(ctx context.Context, records []patentapi.PatentRecord) []patentapi.PatentRecord {
	out := make([]patentapi.PatentRecord, len(records))
	copy(out, records)

	if !o.enricher.Configured() {
		for i := range out {
			out[i].Analysis = enrich.PlaceholderNotConfigured
		}
		return out
	}

	limit := o.policy.EnrichLimit
	if limit > len(out) {
		limit = len(out)
	}

	ctx, span := o.tracer.Start(ctx, "search.enrich",
		trace.WithAttributes(attribute.Int("enrich.count", limit)))
	defer span.End()

	g := &errgroup.Group{}
	g.SetLimit(4)
	for i := 0; i < limit; i++ {
		i := i
		g.Go(func() error {
			out[i].Analysis = o.enricher.Analyze(ctx, records[i])
			return nil
		})
	}
	_ = g.Wait()

	for i := limit; i < len(out); i++ {
		out[i].Analysis = enrich.PlaceholderRateLimited
	}
	return out
}

// variant names the enrichment contracts active for this response.
func (o *Orchestrator) variant() string {
	switch {
	case o.policy.Landscape && o.policy.StructuredInsights:
		return "landscape+insights"
	case o.policy.Landscape:
		return "landscape"
	case o.policy.StructuredInsights:
		return "insights"
	default:
		return "per-record"
	}
}
