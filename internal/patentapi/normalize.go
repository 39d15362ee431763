package patentapi

import (
	"strings"

	"github.com/google/uuid"
)

// normalizeRecord maps one heterogeneous upstream wrapper object into a
// PatentRecord. Missing or malformed fields degrade to documented defaults;
// a partially populated entry never aborts the search.
func normalizeRecord(raw map[string]any, detailed bool) PatentRecord {
	rec := PatentRecord{
		PatentID:          strings.TrimSpace(str(raw["patent_id"])),
		PublicationNumber: strings.TrimSpace(str(raw["publication_number"])),
		Title:             strings.TrimSpace(str(raw["patent_title"])),
		Abstract:          strings.TrimSpace(str(raw["patent_abstract"])),
		PublicationDate:   strings.TrimSpace(str(raw["patent_date"])),
		FilingDate:        strings.TrimSpace(strFromPath(raw, "application", "filing_date")),
	}

	inventors := inventorDetails(raw["inventors"])
	rec.Inventor = joinInventorNames(inventors)
	assignees := assigneeDetails(raw["assignees"])
	rec.Assignee = joinAssigneeNames(assignees)

	if rec.Abstract == "" {
		// Some upstream wrappers carry the abstract under summary fields.
		for _, key := range []string{"abstract_text", "summary_text", "description"} {
			if v := strings.TrimSpace(str(raw[key])); v != "" {
				rec.Abstract = v
				break
			}
		}
	}

	if rec.PatentID == "" {
		rec.PatentID = "UNKNOWN-" + uuid.NewString()[:8]
	}
	if rec.PublicationNumber == "" {
		rec.PublicationNumber = DefaultPublicationNumber
	}
	if rec.Title == "" {
		rec.Title = DefaultTitle
	}
	if rec.Inventor == "" {
		rec.Inventor = DefaultInventor
	}
	if rec.Assignee == "" {
		rec.Assignee = DefaultAssignee
	}
	if rec.PublicationDate == "" {
		rec.PublicationDate = DefaultDate
	}
	if rec.FilingDate == "" {
		rec.FilingDate = DefaultDate
	}
	if rec.Abstract == "" {
		rec.Abstract = DefaultAbstract
	}
	rec.Snippet = makeSnippet(rec.Abstract)

	if detailed {
		rec.Status = strings.TrimSpace(str(raw["patent_status"]))
		rec.Classification = primaryClassification(raw)
		rec.InventorsDetailed = inventors
		rec.AssigneesDetailed = assignees
	}
	return rec
}

// makeSnippet truncates an abstract to SnippetMaxRunes runes and appends an
// ellipsis; shorter abstracts pass through unchanged.
func makeSnippet(abstract string) string {
	runes := []rune(abstract)
	if len(runes) <= SnippetMaxRunes {
		return abstract
	}
	return string(runes[:SnippetMaxRunes]) + "..."
}

func inventorDetails(v any) []InventorDetail {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := []InventorDetail{}
	for _, item := range arr {
		m, _ := item.(map[string]any)
		d := InventorDetail{
			First:    strings.TrimSpace(str(m["inventor_name_first"])),
			Last:     strings.TrimSpace(str(m["inventor_name_last"])),
			Location: strings.TrimSpace(str(m["inventor_city"])),
		}
		if d.First == "" && d.Last == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

func joinInventorNames(details []InventorDetail) string {
	names := make([]string, 0, len(details))
	for _, d := range details {
		name := strings.TrimSpace(d.First + " " + d.Last)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func assigneeDetails(v any) []AssigneeDetail {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := []AssigneeDetail{}
	for _, item := range arr {
		m, _ := item.(map[string]any)
		name := strings.TrimSpace(str(m["assignee_organization"]))
		if name == "" {
			name = strings.TrimSpace(str(m["applicant_organization"]))
		}
		if name == "" {
			continue
		}
		out = append(out, AssigneeDetail{Name: strings.Join(strings.Fields(name), " ")})
	}
	return out
}

func joinAssigneeNames(details []AssigneeDetail) string {
	names := make([]string, 0, len(details))
	for _, d := range details {
		names = append(names, d.Name)
	}
	return strings.Join(names, ", ")
}

func primaryClassification(raw map[string]any) string {
	arr, ok := raw["cpc_at_issue"].([]any)
	if !ok || len(arr) == 0 {
		return ""
	}
	m, _ := arr[0].(map[string]any)
	return strings.TrimSpace(str(m["cpc_subclass_id"]))
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strFromPath(raw map[string]any, keys ...string) string {
	cur := any(raw)
	for _, key := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}
