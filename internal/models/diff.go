package models

// ChangeKind represents the type of change
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// Scope represents what entity was changed
type Scope string

const (
	ScopeComponent Scope = "component"
	ScopeResource  Scope = "resource"
	ScopeEdge      Scope = "edge"
	ScopeEndpoint  Scope = "endpoint"
)

// Severity represents the impact level of a change
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

// Change represents a single difference between two topologies
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Scope    Scope      `json:"scope"`
	Name     string     `json:"name"` // e.g., component id or "edge/sub-edge"
	Path     string     `json:"path"` // e.g., components.api.environment.DATABASE_URL
	Before   any        `json:"before"`
	After    any        `json:"after"`
	Severity Severity   `json:"severity"`
}

// DiffSummary provides aggregate counts of changes
type DiffSummary struct {
	ComponentsAdded   int `json:"components_added"`
	ComponentsRemoved int `json:"components_removed"`
	ComponentsChanged int `json:"components_changed"`
	ResourcesAdded    int `json:"resources_added"`
	ResourcesRemoved  int `json:"resources_removed"`
	ResourcesChanged  int `json:"resources_changed"`
	TotalChanges      int `json:"total_changes"`
	BreakingCount     int `json:"breaking_count"`
	WarningCount      int `json:"warning_count"`
	InfoCount         int `json:"info_count"`
}

// DiffReport contains the full comparison result
type DiffReport struct {
	Summary DiffSummary `json:"summary"`
	Changes []Change    `json:"changes"`
}

// NewDiffReport creates an empty diff report
func NewDiffReport() *DiffReport {
	return &DiffReport{
		Changes: make([]Change, 0),
	}
}

// AddChange adds a change to the report and updates summary
func (r *DiffReport) AddChange(c Change) {
	r.Changes = append(r.Changes, c)
	r.Summary.TotalChanges++

	switch c.Severity {
	case SeverityBreaking:
		r.Summary.BreakingCount++
	case SeverityWarning:
		r.Summary.WarningCount++
	case SeverityInfo:
		r.Summary.InfoCount++
	}
}

// SeverityLevel returns a numeric level for severity comparison
func SeverityLevel(s Severity) int {
	switch s {
	case SeverityBreaking:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// ParseSeverity converts a string to Severity
func ParseSeverity(s string) Severity {
	switch s {
	case "breaking":
		return SeverityBreaking
	case "warning":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
