package enrich

import (
	"fmt"
	"strings"

	"github.com/joelkehle/patent-scout/internal/patentapi"
)

const (
	// insightsMaxRecords caps how many records are embedded in the
	// structured-insights prompt; insightsAbstractRunes caps each abstract.
	insightsMaxRecords   = 8
	insightsAbstractRune = 400

	// landscapeMaxRecords caps the summarized list in the landscape prompt.
	landscapeMaxRecords = 10
)

func buildRecordPrompt(rec patentapi.PatentRecord) string {
	var b strings.Builder
	b.WriteString("Analyze the following patent and produce a briefing with exactly these sections:\n")
	b.WriteString("1. Technical Summary\n2. Innovation Assessment\n3. Commercial Potential\n4. Competitive Landscape\n5. Risks\n6. Strategic Recommendations\n\n")
	fmt.Fprintf(&b, "Title: %s\n", rec.Title)
	fmt.Fprintf(&b, "Patent ID: %s\n", rec.PatentID)
	fmt.Fprintf(&b, "Publication date: %s\n", rec.PublicationDate)
	fmt.Fprintf(&b, "Inventor(s): %s\n", rec.Inventor)
	fmt.Fprintf(&b, "Assignee(s): %s\n", rec.Assignee)
	fmt.Fprintf(&b, "Abstract: %s\n", rec.Abstract)
	return b.String()
}

func buildInsightsPrompt(records []patentapi.PatentRecord, searchTerm string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are reviewing patents returned by a search for %q.\n", searchTerm)
	b.WriteString("Return ONLY a JSON object with exactly these keys:\n")
	b.WriteString(`{"techBreakdown": "string", "competitorActivity": "string", "practicalUses": "string", "techMaturity": "string", "interestingFindings": "string", "patentStrength": "string"}`)
	b.WriteString("\nNo prose outside the JSON object.\n\nPatents:\n")
	for i, rec := range records {
		if i >= insightsMaxRecords {
			break
		}
		fmt.Fprintf(&b, "%d. [%s] %s (%s) — assignee: %s\n   %s\n",
			i+1, rec.PatentID, rec.Title, rec.PublicationDate, rec.Assignee,
			truncateRunes(rec.Abstract, insightsAbstractRune))
	}
	return b.String()
}

func buildLandscapePrompt(records []patentapi.PatentRecord, keywords string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Below are patents returned by a search for %q.\n", keywords)
	b.WriteString("Write a market landscape briefing with exactly these sections:\n")
	b.WriteString("1. Technology Trends\n2. Key Players\n3. White-Space Opportunities\n4. Collaboration Suggestions\n5. IP Strategy\n6. Market-Entry Considerations\n\nPatents:\n")
	for i, rec := range records {
		if i >= landscapeMaxRecords {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s | %s | %s\n", rec.PatentID, rec.Title, rec.PublicationDate, rec.Assignee)
	}
	return b.String()
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
