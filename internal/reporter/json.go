package reporter

import "github.com/stackgen-cli/topogen/internal/models"

// JSONReport is the stable JSON output format
type JSONReport struct {
	SchemaVersion string             `json:"schema_version"`
	OldFile       string             `json:"old_file"`
	NewFile       string             `json:"new_file"`
	Summary       models.DiffSummary `json:"summary"`
	Changes       []models.Change    `json:"changes"`
}

// ToJSON converts a DiffReport to the stable JSON format
func ToJSON(report *models.DiffReport, oldFile, newFile string) *JSONReport {
	changes := report.Changes
	if changes == nil {
		changes = []models.Change{}
	}
	return &JSONReport{
		SchemaVersion: "1.0",
		OldFile:       oldFile,
		NewFile:       newFile,
		Summary:       report.Summary,
		Changes:       changes,
	}
}
