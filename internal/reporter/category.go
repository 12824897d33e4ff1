package reporter

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/stackgen-cli/topogen/internal/models"
)

// Categorizer assigns a change to a named category
type Categorizer func(models.Change) string

// CategorySummary holds changes grouped by category
type CategorySummary struct {
	Category string
	Count    int
	Breaking int
	Warning  int
	Info     int
	Changes  []models.Change
}

// ToCategorySummary generates a category-based summary report
func ToCategorySummary(report *models.DiffReport, oldFile, newFile string, categorize Categorizer) string {
	var sb strings.Builder

	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	sb.WriteString(cyan("topogen diff: Category Summary\n\n"))
	sb.WriteString(fmt.Sprintf("Comparing: %s → %s\n\n", oldFile, newFile))

	summaries := groupByCategory(report.Changes, categorize)

	if len(summaries) == 0 {
		sb.WriteString(green("No differences found.\n"))
		return sb.String()
	}

	// Print table header
	sb.WriteString("┌" + strings.Repeat("─", 20) + "┬" + strings.Repeat("─", 8) + "┬" + strings.Repeat("─", 10) + "┬" + strings.Repeat("─", 10) + "┬" + strings.Repeat("─", 8) + "┐\n")
	sb.WriteString(fmt.Sprintf("│ %-18s │ %6s │ %8s │ %8s │ %6s │\n",
		"Category", "Total", "Breaking", "Warning", "Info"))
	sb.WriteString("├" + strings.Repeat("─", 20) + "┼" + strings.Repeat("─", 8) + "┼" + strings.Repeat("─", 10) + "┼" + strings.Repeat("─", 10) + "┼" + strings.Repeat("─", 8) + "┤\n")

	var totalCount, totalBreaking, totalWarning, totalInfo int
	for _, s := range summaries {
		// pad before coloring so escape codes do not break the columns
		breakingStr := fmt.Sprintf("%8d", s.Breaking)
		warningStr := fmt.Sprintf("%8d", s.Warning)
		if s.Breaking > 0 {
			breakingStr = red(breakingStr)
		}
		if s.Warning > 0 {
			warningStr = yellow(warningStr)
		}

		sb.WriteString(fmt.Sprintf("│ %-18s │ %6d │ %s │ %s │ %6d │\n",
			s.Category, s.Count, breakingStr, warningStr, s.Info))

		totalCount += s.Count
		totalBreaking += s.Breaking
		totalWarning += s.Warning
		totalInfo += s.Info
	}

	sb.WriteString("└" + strings.Repeat("─", 20) + "┴" + strings.Repeat("─", 8) + "┴" + strings.Repeat("─", 10) + "┴" + strings.Repeat("─", 10) + "┴" + strings.Repeat("─", 8) + "┘\n")

	sb.WriteString(fmt.Sprintf("\nTotal: %d changes (%s, %s, %d info)\n",
		totalCount,
		red(fmt.Sprintf("%d breaking", totalBreaking)),
		yellow(fmt.Sprintf("%d warning", totalWarning)),
		totalInfo))

	return sb.String()
}

// ToCategoryDetail generates detailed output grouped by category
func ToCategoryDetail(report *models.DiffReport, oldFile, newFile string, categorize Categorizer) string {
	var sb strings.Builder

	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	sb.WriteString(cyan("topogen diff: Category Report\n\n"))
	sb.WriteString(fmt.Sprintf("Comparing: %s → %s\n\n", oldFile, newFile))

	summaries := groupByCategory(report.Changes, categorize)

	if len(summaries) == 0 {
		sb.WriteString(green("No differences found.\n"))
		return sb.String()
	}

	var totalBreaking, totalWarning int
	for _, s := range summaries {
		sb.WriteString(cyan(fmt.Sprintf("\n%s (%d changes)\n", categoryHeader(s.Category), s.Count)))
		sb.WriteString(strings.Repeat("─", 40) + "\n")

		for _, c := range s.Changes {
			icon := changeIcon(c.Kind, c.Severity)
			sevLabel := severityLabel(c.Severity)
			target := fmt.Sprintf("%s.%s", c.Name, extractField(c))

			switch c.Kind {
			case models.ChangeAdded:
				sb.WriteString(fmt.Sprintf("  %s %s %s = %v\n", icon, sevLabel, target, formatValue(c.After)))
			case models.ChangeRemoved:
				sb.WriteString(fmt.Sprintf("  %s %s %s (removed)\n", icon, sevLabel, target))
			case models.ChangeModified:
				sb.WriteString(fmt.Sprintf("  %s %s %s: %v → %v\n", icon, sevLabel, target, formatValue(c.Before), formatValue(c.After)))
			}
		}

		totalBreaking += s.Breaking
		totalWarning += s.Warning
	}

	if totalBreaking > 0 {
		sb.WriteString(fmt.Sprintf("\n%s\n", red(fmt.Sprintf("%d breaking changes detected!", totalBreaking))))
	}
	if totalWarning > 0 {
		sb.WriteString(fmt.Sprintf("%s\n", yellow(fmt.Sprintf("%d warnings", totalWarning))))
	}

	return sb.String()
}

func categoryHeader(category string) string {
	switch category {
	case "environment":
		return "Environment Variables"
	case "ports":
		return "Port Mappings"
	case "images":
		return "Images & Builds"
	case "tls":
		return "TLS"
	case "edges":
		return "Edges"
	case "endpoints":
		return "Endpoints"
	case "mappings":
		return "Developer Mappings"
	case "membership":
		return "Components & Resources"
	}
	return titleCase(category)
}

// groupByCategory groups changes by their category, most severe first
func groupByCategory(changes []models.Change, categorize Categorizer) []CategorySummary {
	categories := make(map[string]*CategorySummary)

	for _, c := range changes {
		cat := categorize(c)
		cs, ok := categories[cat]
		if !ok {
			cs = &CategorySummary{Category: cat}
			categories[cat] = cs
		}

		cs.Count++
		cs.Changes = append(cs.Changes, c)

		switch c.Severity {
		case models.SeverityBreaking:
			cs.Breaking++
		case models.SeverityWarning:
			cs.Warning++
		default:
			cs.Info++
		}
	}

	result := make([]CategorySummary, 0, len(categories))
	for _, cs := range categories {
		result = append(result, *cs)
	}

	sort.Slice(result, func(i, j int) bool {
		// Sort by breaking count, then warning, then total, then name
		if result[i].Breaking != result[j].Breaking {
			return result[i].Breaking > result[j].Breaking
		}
		if result[i].Warning != result[j].Warning {
			return result[i].Warning > result[j].Warning
		}
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})

	return result
}

// titleCase converts a string to title case (first letter uppercased)
func titleCase(s string) string {
	if len(s) == 0 {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
