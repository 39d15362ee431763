// Package enrich attaches Claude-generated commentary to patent records:
// a per-record analysis narrative, a structured whole-set insights object,
// and a market landscape narrative. Enrichment is strictly best-effort:
// a missing credential or a failed call yields a fixed placeholder, never
// an error, so enrichment can never fail a search.
package enrich

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joelkehle/patent-scout/internal/patentapi"
)

// Placeholders substituted when enrichment is skipped or unavailable.
const (
	PlaceholderNotConfigured = "AI analysis not configured."
	PlaceholderUnavailable   = "AI analysis unavailable for this patent."
	PlaceholderRateLimited   = "Not analyzed to limit AI usage for this search."

	landscapeUnavailable = "Landscape analysis unavailable."
)

const DefaultCacheSize = 512

// Analyzer memoizes raw model output in a bounded LRU. Keys cover every
// field the prompt embeds, so two inputs share an entry only when they
// produce the same prompt.
type Analyzer struct {
	caller Caller
	cache  *lru.Cache[string, string]
}

// NewAnalyzer builds an analyzer around caller. A nil caller is valid and
// means no AI credential is configured: every contract then returns its
// placeholder without any outbound call.
func NewAnalyzer(caller Caller, cacheSize int) (*Analyzer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Analyzer{caller: caller, cache: cache}, nil
}

// Configured reports whether an AI credential is available.
func (a *Analyzer) Configured() bool { return a.caller != nil }

// Analyze produces the per-record analysis narrative. It never returns an
// error: failures degrade to PlaceholderUnavailable.
func (a *Analyzer) Analyze(ctx context.Context, rec patentapi.PatentRecord) string {
	if a.caller == nil {
		return PlaceholderNotConfigured
	}
	key := canonicalKey("record", rec.PatentID, rec.Title, rec.PublicationDate, rec.Inventor, rec.Assignee, rec.Abstract)
	if cached, ok := a.cache.Get(key); ok {
		return cached
	}
	text, err := a.caller.Generate(ctx, buildRecordPrompt(rec))
	if err != nil {
		log.Printf("enrich analyze_failed patent_id=%s err=%q", rec.PatentID, err.Error())
		return PlaceholderUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return PlaceholderUnavailable
	}
	a.cache.Add(key, text)
	return text
}

// AnalyzeStructured produces the whole-set structured insights object. The
// result always carries every schema key; a parse failure degrades to the
// typed fallback with the raw text preserved, never an error.
func (a *Analyzer) AnalyzeStructured(ctx context.Context, records []patentapi.PatentRecord, searchTerm string) Insights {
	if a.caller == nil {
		return Insights{
			TechBreakdown:       PlaceholderNotConfigured,
			CompetitorActivity:  competitorSummary(records),
			PracticalUses:       PlaceholderNotConfigured,
			TechMaturity:        maturitySummary(records),
			InterestingFindings: PlaceholderNotConfigured,
			PatentStrength:      PlaceholderNotConfigured,
		}
	}
	prompt := buildInsightsPrompt(records, searchTerm)
	key := canonicalKey("insights", prompt)
	raw, ok := a.cache.Get(key)
	if !ok {
		var err error
		raw, err = a.caller.Generate(ctx, prompt)
		if err != nil {
			log.Printf("enrich insights_failed term=%q err=%q", searchTerm, err.Error())
			return fallbackInsights("", records, searchTerm)
		}
		a.cache.Add(key, raw)
	}
	if parsed, ok := decodeInsights(raw); ok {
		return parsed
	}
	return fallbackInsights(raw, records, searchTerm)
}

// AnalyzeLandscape produces a single market-landscape narrative across the
// result set. Same placeholder policy as Analyze.
func (a *Analyzer) AnalyzeLandscape(ctx context.Context, records []patentapi.PatentRecord, keywords string) string {
	if a.caller == nil {
		return PlaceholderNotConfigured
	}
	prompt := buildLandscapePrompt(records, keywords)
	key := canonicalKey("landscape", prompt)
	if cached, ok := a.cache.Get(key); ok {
		return cached
	}
	text, err := a.caller.Generate(ctx, prompt)
	if err != nil {
		log.Printf("enrich landscape_failed keywords=%q err=%q", keywords, err.Error())
		return landscapeUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return landscapeUnavailable
	}
	a.cache.Add(key, text)
	return text
}

func canonicalKey(parts ...string) string {
	blob, _ := json.Marshal(parts)
	return string(blob)
}
