package patentapi

import (
	"strings"
	"testing"
)

func fullRaw() map[string]any {
	return map[string]any{
		"patent_id":          "10000001",
		"publication_number": "US-2024-0001A1",
		"patent_title":       "Widget assembly",
		"patent_abstract":    "A widget assembly with improved torque.",
		"patent_date":        "2024-03-12",
		"application":        map[string]any{"filing_date": "2022-01-30"},
		"inventors": []any{
			map[string]any{"inventor_name_first": "Ada", "inventor_name_last": "Lovelace"},
			map[string]any{"inventor_name_first": "Alan", "inventor_name_last": "Turing"},
		},
		"assignees": []any{
			map[string]any{"assignee_organization": "Acme  Corp"},
		},
	}
}

func TestNormalizeFullRecord(t *testing.T) {
	rec := normalizeRecord(fullRaw(), false)
	if rec.PatentID != "10000001" {
		t.Errorf("patent_id=%q", rec.PatentID)
	}
	if rec.Inventor != "Ada Lovelace, Alan Turing" {
		t.Errorf("inventor=%q", rec.Inventor)
	}
	if rec.Assignee != "Acme Corp" {
		t.Errorf("assignee=%q (whitespace not collapsed)", rec.Assignee)
	}
	if rec.FilingDate != "2022-01-30" {
		t.Errorf("filing_date=%q", rec.FilingDate)
	}
	if rec.Snippet != rec.Abstract {
		t.Errorf("short abstract should pass through as snippet")
	}
	if rec.Analysis != "" {
		t.Errorf("analysis must be empty after normalization")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	rec := normalizeRecord(map[string]any{}, false)
	if rec.PatentID == "" || !strings.HasPrefix(rec.PatentID, "UNKNOWN-") {
		t.Errorf("patent_id=%q want generated placeholder", rec.PatentID)
	}
	if rec.PublicationNumber != DefaultPublicationNumber {
		t.Errorf("publication_number=%q", rec.PublicationNumber)
	}
	if rec.Title != DefaultTitle {
		t.Errorf("title=%q", rec.Title)
	}
	if rec.Inventor != DefaultInventor || rec.Assignee != DefaultAssignee {
		t.Errorf("inventor=%q assignee=%q", rec.Inventor, rec.Assignee)
	}
	if rec.PublicationDate != DefaultDate || rec.FilingDate != DefaultDate {
		t.Errorf("dates %q %q", rec.PublicationDate, rec.FilingDate)
	}
	if rec.Abstract != DefaultAbstract {
		t.Errorf("abstract=%q", rec.Abstract)
	}
	if rec.Snippet == "" {
		t.Error("snippet must never be empty")
	}
}

func TestNormalizeMalformedListsDegrade(t *testing.T) {
	raw := fullRaw()
	raw["inventors"] = "not a list"
	raw["assignees"] = []any{map[string]any{"assignee_organization": ""}}
	rec := normalizeRecord(raw, false)
	if rec.Inventor != DefaultInventor {
		t.Errorf("inventor=%q", rec.Inventor)
	}
	if rec.Assignee != DefaultAssignee {
		t.Errorf("assignee=%q", rec.Assignee)
	}
}

func TestNormalizeAbstractFallbackFields(t *testing.T) {
	raw := fullRaw()
	delete(raw, "patent_abstract")
	raw["summary_text"] = "Summary text body."
	rec := normalizeRecord(raw, false)
	if rec.Abstract != "Summary text body." {
		t.Errorf("abstract=%q", rec.Abstract)
	}
}

func TestSnippetTruncation(t *testing.T) {
	long := strings.Repeat("a", SnippetMaxRunes+50)
	got := makeSnippet(long)
	if len([]rune(got)) != SnippetMaxRunes+3 {
		t.Errorf("snippet rune length=%d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("snippet missing ellipsis: %q", got[len(got)-10:])
	}

	exact := strings.Repeat("b", SnippetMaxRunes)
	if makeSnippet(exact) != exact {
		t.Error("abstract at the limit should not be truncated")
	}

	// Truncation must respect rune boundaries.
	wide := strings.Repeat("日", SnippetMaxRunes+1)
	snippet := makeSnippet(wide)
	if !strings.HasSuffix(snippet, "...") {
		t.Error("wide-rune abstract not truncated")
	}
	for _, r := range snippet {
		if r != '日' && r != '.' {
			t.Fatalf("snippet corrupted rune %q", r)
		}
	}
}

func TestNormalizeDetailedFields(t *testing.T) {
	raw := fullRaw()
	raw["patent_status"] = "Active"
	raw["cpc_at_issue"] = []any{map[string]any{"cpc_subclass_id": "H04L"}}
	rec := normalizeRecord(raw, true)
	if rec.Status != "Active" {
		t.Errorf("status=%q", rec.Status)
	}
	if rec.Classification != "H04L" {
		t.Errorf("classification=%q", rec.Classification)
	}
	if len(rec.InventorsDetailed) != 2 || rec.InventorsDetailed[0].Last != "Lovelace" {
		t.Errorf("inventors_detailed=%+v", rec.InventorsDetailed)
	}
	if len(rec.AssigneesDetailed) != 1 || rec.AssigneesDetailed[0].Name != "Acme Corp" {
		t.Errorf("assignees_detailed=%+v", rec.AssigneesDetailed)
	}
}

func TestNormalizeDetailedOmittedByDefault(t *testing.T) {
	rec := normalizeRecord(fullRaw(), false)
	if rec.Status != "" || rec.Classification != "" || rec.InventorsDetailed != nil {
		t.Errorf("detailed fields leaked into basic record: %+v", rec)
	}
}
