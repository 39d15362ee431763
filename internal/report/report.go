// Package report renders a search response as a shareable briefing:
// markdown assembled from the normalized records and their analyses,
// converted to HTML, and optionally printed to PDF through headless Chrome.
package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/patent-scout/internal/search"
)

// BuildMarkdown assembles the briefing markdown for one search response.
func BuildMarkdown(resp *search.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Patent Search Briefing: %s\n\n", resp.Metadata.SearchTerm)
	fmt.Fprintf(&b, "**Results:** %d &nbsp;|&nbsp; **Source:** %s &nbsp;|&nbsp; **Generated:** %s\n\n",
		resp.Total, resp.DataSource, resp.Metadata.Timestamp)

	if resp.Landscape != "" {
		b.WriteString("## Market Landscape\n\n")
		b.WriteString(resp.Landscape)
		b.WriteString("\n\n")
	}
	if resp.Insights != nil {
		b.WriteString("## Portfolio Insights\n\n")
		writeInsightRow(&b, "Technology breakdown", resp.Insights.TechBreakdown)
		writeInsightRow(&b, "Competitor activity", resp.Insights.CompetitorActivity)
		writeInsightRow(&b, "Practical uses", resp.Insights.PracticalUses)
		writeInsightRow(&b, "Technology maturity", resp.Insights.TechMaturity)
		writeInsightRow(&b, "Interesting findings", resp.Insights.InterestingFindings)
		writeInsightRow(&b, "Patent strength", resp.Insights.PatentStrength)
		b.WriteString("\n")
	}

	b.WriteString("## Patents\n\n")
	for i, rec := range resp.Patents {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, rec.Title)
		fmt.Fprintf(&b, "- **Patent ID:** %s\n", rec.PatentID)
		fmt.Fprintf(&b, "- **Publication:** %s (%s)\n", rec.PublicationNumber, rec.PublicationDate)
		fmt.Fprintf(&b, "- **Filed:** %s\n", rec.FilingDate)
		fmt.Fprintf(&b, "- **Inventor(s):** %s\n", rec.Inventor)
		fmt.Fprintf(&b, "- **Assignee(s):** %s\n\n", rec.Assignee)
		fmt.Fprintf(&b, "%s\n\n", rec.Snippet)
		if rec.Analysis != "" {
			fmt.Fprintf(&b, "**Analysis**\n\n%s\n\n", rec.Analysis)
		}
	}
	return b.String()
}

// BuildHTML converts the briefing markdown to a standalone HTML document.
func BuildHTML(resp *search.Response) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(BuildMarkdown(resp)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	title := html.EscapeString("Patent Search Briefing: " + resp.Metadata.SearchTerm)
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + title + "</title>" +
		"<style>" + briefingCSS + "</style></head><body><main class='briefing'>" +
		content.String() +
		"</main></body></html>", nil
}

const briefingCSS = `
body{font-family:Georgia,serif;color:#1c1917;background:#fff;margin:0;}
.briefing{max-width:880px;margin:0 auto;padding:2rem 1.5rem;}
.briefing h1{border-bottom:3px solid #92400e;padding-bottom:0.4rem;}
.briefing h2{color:#78350f;margin-top:2rem;}
.briefing h3{margin-top:1.5rem;}
.briefing table{width:100%;border-collapse:collapse;font-size:0.85rem;}
.briefing th,.briefing td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
@media print{ @page{size:auto;margin:12mm;} }
`

func writeInsightRow(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", label, value)
}
