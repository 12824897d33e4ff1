package reporter

import (
	"fmt"
	"strings"

	"github.com/stackgen-cli/topogen/internal/models"
)

// ToMarkdown generates a Markdown report suitable for PR comments
func ToMarkdown(report *models.DiffReport, oldFile, newFile string) string {
	var sb strings.Builder

	// Header
	sb.WriteString("## Topology Diff\n\n")
	sb.WriteString(fmt.Sprintf("**Comparing:** `%s` → `%s`\n\n", oldFile, newFile))

	// Summary
	s := report.Summary
	sb.WriteString("### Summary\n\n")
	sb.WriteString("| Metric | Count |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Components Changed | %d |\n", s.ComponentsChanged))
	sb.WriteString(fmt.Sprintf("| Components Added | %d |\n", s.ComponentsAdded))
	sb.WriteString(fmt.Sprintf("| Components Removed | %d |\n", s.ComponentsRemoved))
	sb.WriteString(fmt.Sprintf("| Resources Changed | %d |\n", s.ResourcesChanged))
	sb.WriteString(fmt.Sprintf("| Resources Added | %d |\n", s.ResourcesAdded))
	sb.WriteString(fmt.Sprintf("| Resources Removed | %d |\n", s.ResourcesRemoved))
	sb.WriteString(fmt.Sprintf("| Total Changes | %d |\n", s.TotalChanges))

	if s.BreakingCount > 0 {
		sb.WriteString(fmt.Sprintf("| ⚠️ **Breaking Changes** | **%d** |\n", s.BreakingCount))
	}
	if s.WarningCount > 0 {
		sb.WriteString(fmt.Sprintf("| ⚡ Warnings | %d |\n", s.WarningCount))
	}

	sb.WriteString("\n")

	if len(report.Changes) == 0 {
		sb.WriteString("✅ No differences found.\n")
		return sb.String()
	}

	// Breaking changes first
	if breaking := filterBySeverity(report.Changes, models.SeverityBreaking); len(breaking) > 0 {
		sb.WriteString("### ⚠️ Breaking Changes\n\n")
		writeChangeTable(&sb, breaking)
		sb.WriteString("\n")
	}

	// Warnings
	if warnings := filterBySeverity(report.Changes, models.SeverityWarning); len(warnings) > 0 {
		sb.WriteString("### ⚡ Warnings\n\n")
		writeChangeTable(&sb, warnings)
		sb.WriteString("\n")
	}

	// Info changes (collapsed by default in long reports)
	infoChanges := filterBySeverity(report.Changes, models.SeverityInfo)
	if len(infoChanges) > 0 {
		if len(infoChanges) > 5 {
			sb.WriteString(fmt.Sprintf("<details>\n<summary>ℹ️ Info Changes (%d)</summary>\n\n", len(infoChanges)))
		} else {
			sb.WriteString("### ℹ️ Info Changes\n\n")
		}

		writeChangeTable(&sb, infoChanges)

		if len(infoChanges) > 5 {
			sb.WriteString("\n</details>\n")
		}
	}

	return sb.String()
}

func writeChangeTable(sb *strings.Builder, changes []models.Change) {
	sb.WriteString("| Scope | Name | Field | Change |\n")
	sb.WriteString("|-------|------|-------|--------|\n")
	for _, c := range changes {
		sb.WriteString(fmt.Sprintf("| %s | `%s` | `%s` | %s |\n", c.Scope, c.Name, extractField(c), formatChangeDescription(c)))
	}
}

func filterBySeverity(changes []models.Change, severity models.Severity) []models.Change {
	var result []models.Change
	for _, c := range changes {
		if c.Severity == severity {
			result = append(result, c)
		}
	}
	return result
}

func formatChangeDescription(c models.Change) string {
	switch c.Kind {
	case models.ChangeAdded:
		return fmt.Sprintf("Added: `%v`", truncateValue(c.After))
	case models.ChangeRemoved:
		return fmt.Sprintf("Removed (was: `%v`)", truncateValue(c.Before))
	case models.ChangeModified:
		return fmt.Sprintf("`%v` → `%v`", truncateValue(c.Before), truncateValue(c.After))
	}
	return ""
}

func truncateValue(v any) string {
	if v == nil {
		return "null"
	}
	s := fmt.Sprintf("%v", v)
	if len(s) > 30 {
		return s[:27] + "..."
	}
	return s
}
