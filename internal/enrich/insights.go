package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joelkehle/patent-scout/internal/patentapi"
)

// Insights is the structured whole-set analysis. Every key is always
// populated: on a clean decode from the model output, or from the typed
// fallback when the model returns something that is not JSON.
type Insights struct {
	TechBreakdown       string `json:"techBreakdown"`
	CompetitorActivity  string `json:"competitorActivity"`
	PracticalUses       string `json:"practicalUses"`
	TechMaturity        string `json:"techMaturity"`
	InterestingFindings string `json:"interestingFindings"`
	PatentStrength      string `json:"patentStrength"`
	RawAnalysis         string `json:"rawAnalysis,omitempty"`
	Error               string `json:"error,omitempty"`
}

// decodeInsights attempts a strict decode of the first brace-delimited
// substring of the model output. Callers fall through to fallbackInsights
// when it reports false.
func decodeInsights(raw string) (Insights, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Insights{}, false
	}
	var out Insights
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return Insights{}, false
	}
	return out, true
}

// fallbackInsights builds the default-filled value returned when the model
// output cannot be decoded. The raw text is preserved under rawAnalysis and
// the remaining fields are derived from the input records.
func fallbackInsights(raw string, records []patentapi.PatentRecord, searchTerm string) Insights {
	return Insights{
		TechBreakdown:       fmt.Sprintf("%d patents found for %q. Structured breakdown unavailable; see rawAnalysis.", len(records), searchTerm),
		CompetitorActivity:  competitorSummary(records),
		PracticalUses:       "Not extracted. See rawAnalysis.",
		TechMaturity:        maturitySummary(records),
		InterestingFindings: "Not extracted. See rawAnalysis.",
		PatentStrength:      "Not assessed.",
		RawAnalysis:         raw,
		Error:               "analysis response was not valid JSON",
	}
}

func competitorSummary(records []patentapi.PatentRecord) string {
	seen := map[string]struct{}{}
	names := []string{}
	for _, rec := range records {
		for _, name := range strings.Split(rec.Assignee, ",") {
			name = strings.TrimSpace(name)
			if name == "" || name == patentapi.DefaultAssignee {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
			if len(names) == 5 {
				return "Active assignees include " + strings.Join(names, ", ") + "."
			}
		}
	}
	if len(names) == 0 {
		return "No assignee activity identified."
	}
	return "Active assignees include " + strings.Join(names, ", ") + "."
}

func maturitySummary(records []patentapi.PatentRecord) string {
	recent := 0
	for _, rec := range records {
		if strings.HasPrefix(rec.PublicationDate, "202") {
			recent++
		}
	}
	if len(records) == 0 {
		return "Unknown."
	}
	return fmt.Sprintf("%d of %d results published since 2020.", recent, len(records))
}
