package patentapi

// PatentRecord is the normalized shape of one upstream filing or grant.
// Every display field is guaranteed non-empty after normalization; missing
// upstream data is replaced with the documented defaults rather than
// surfacing as null. Records are treated as immutable once produced; the
// orchestrator copies a record before attaching analysis.
type PatentRecord struct {
	PatentID          string           `json:"patent_id"`
	PublicationNumber string           `json:"publication_number"`
	Title             string           `json:"title"`
	Inventor          string           `json:"inventor"`
	Assignee          string           `json:"assignee"`
	PublicationDate   string           `json:"publication_date"`
	FilingDate        string           `json:"filing_date"`
	Snippet           string           `json:"snippet"`
	Abstract          string           `json:"abstract"`
	Status            string           `json:"status,omitempty"`
	Classification    string           `json:"classification,omitempty"`
	InventorsDetailed []InventorDetail `json:"inventors_detailed,omitempty"`
	AssigneesDetailed []AssigneeDetail `json:"assignees_detailed,omitempty"`

	// Analysis is attached by the orchestrator after enrichment; it is
	// never populated by the upstream client.
	Analysis string `json:"analysis,omitempty"`
}

type InventorDetail struct {
	First    string `json:"first"`
	Last     string `json:"last"`
	Location string `json:"location,omitempty"`
}

type AssigneeDetail struct {
	Name string `json:"name"`
}

// Defaults substituted during normalization.
const (
	DefaultPublicationNumber = "N/A"
	DefaultTitle             = "Untitled patent"
	DefaultInventor          = "Unknown"
	DefaultAssignee          = "Unknown"
	DefaultDate              = "Unknown"
	DefaultAbstract          = "No abstract available."

	SnippetMaxRunes = 200
)
