package reporter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/stackgen-cli/topogen/internal/models"
)

// scopeOrder fixes the order of sections in text and category reports.
var scopeOrder = []models.Scope{
	models.ScopeComponent,
	models.ScopeResource,
	models.ScopeEdge,
	models.ScopeEndpoint,
}

// ToText generates a human-readable text report
func ToText(report *models.DiffReport, oldFile, newFile string) string {
	var sb strings.Builder

	// Header
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	sb.WriteString(cyan("topogen diff\n\n"))
	sb.WriteString(fmt.Sprintf("Comparing: %s → %s\n\n", oldFile, newFile))

	// Summary
	s := report.Summary
	sb.WriteString(fmt.Sprintf("Summary: %d components changed, %d added, %d removed\n",
		s.ComponentsChanged, s.ComponentsAdded, s.ComponentsRemoved))
	sb.WriteString(fmt.Sprintf("         %d resources changed, %d added, %d removed\n",
		s.ResourcesChanged, s.ResourcesAdded, s.ResourcesRemoved))
	sb.WriteString(fmt.Sprintf("         %d changes (%s, %s, %d info)\n\n",
		s.TotalChanges,
		red(fmt.Sprintf("%d breaking", s.BreakingCount)),
		yellow(fmt.Sprintf("%d warnings", s.WarningCount)),
		s.InfoCount))

	if len(report.Changes) == 0 {
		sb.WriteString(green("No differences found.\n"))
		return sb.String()
	}

	sb.WriteString(strings.Repeat("━", 50) + "\n\n")

	// Group changes by scope, then by entity
	for _, scope := range scopeOrder {
		byName := groupByName(report.Changes, scope)

		for _, name := range sortedKeys(byName) {
			sb.WriteString(fmt.Sprintf("%s: %s\n", scopeTitle(scope), cyan(name)))

			for _, c := range byName[name] {
				icon := changeIcon(c.Kind, c.Severity)
				sevLabel := severityLabel(c.Severity)
				field := extractField(c)

				switch c.Kind {
				case models.ChangeAdded:
					sb.WriteString(fmt.Sprintf("  %s %s %s = %v\n", icon, sevLabel, field, formatValue(c.After)))
				case models.ChangeRemoved:
					sb.WriteString(fmt.Sprintf("  %s %s %s removed\n", icon, sevLabel, field))
				case models.ChangeModified:
					sb.WriteString(fmt.Sprintf("  %s %s %s changed: %v → %v\n", icon, sevLabel, field, formatValue(c.Before), formatValue(c.After)))
				}
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func changeIcon(kind models.ChangeKind, severity models.Severity) string {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	switch kind {
	case models.ChangeAdded:
		return green("+")
	case models.ChangeRemoved:
		if severity == models.SeverityBreaking {
			return red("!")
		}
		return yellow("-")
	case models.ChangeModified:
		if severity == models.SeverityBreaking {
			return red("!")
		}
		if severity == models.SeverityWarning {
			return yellow("~")
		}
		return "~"
	}
	return "•"
}

func severityLabel(s models.Severity) string {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	switch s {
	case models.SeverityBreaking:
		return red("BREAKING")
	case models.SeverityWarning:
		return yellow("WARNING ")
	default:
		return "INFO    "
	}
}

func scopeTitle(s models.Scope) string {
	switch s {
	case models.ScopeComponent:
		return "Component"
	case models.ScopeResource:
		return "Resource"
	case models.ScopeEdge:
		return "Edge"
	case models.ScopeEndpoint:
		return "Endpoint"
	}
	return string(s)
}

// extractField returns the part of the change path below its entity.
// Sub-edge paths carry two ids (topology.edge.sub) and mappings are
// reported under their resource.
func extractField(c models.Change) string {
	parts := strings.Split(c.Path, ".")
	skip := 2
	switch {
	case c.Scope == models.ScopeEdge:
		skip = 3
	case parts[0] == "mappings":
		if len(parts) == 2 {
			return "mapping"
		}
		return "mapping." + strings.Join(parts[2:], ".")
	}
	if len(parts) > skip {
		return strings.Join(parts[skip:], ".")
	}
	return "(" + string(c.Scope) + ")"
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		if len(val) > 50 {
			return fmt.Sprintf("%q...", val[:47])
		}
		return fmt.Sprintf("%q", val)
	default:
		s := fmt.Sprintf("%v", v)
		if len(s) > 50 {
			return s[:47] + "..."
		}
		return s
	}
}

func groupByName(changes []models.Change, scope models.Scope) map[string][]models.Change {
	result := make(map[string][]models.Change)
	for _, c := range changes {
		if c.Scope == scope {
			result[c.Name] = append(result[c.Name], c)
		}
	}
	return result
}

func sortedKeys(m map[string][]models.Change) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
