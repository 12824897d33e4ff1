package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stackgen-cli/topogen/internal/diff"
	"github.com/stackgen-cli/topogen/internal/logging"
	"github.com/stackgen-cli/topogen/internal/reporter"
	"github.com/stackgen-cli/topogen/internal/settings"
)

var (
	formatFlag     string
	nameFilter     string
	severityMin    string
	strictMode     bool
	diffEnvFile    string
	categoryMode   bool
	categoryDetail bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <old-project.yaml> <new-project.yaml>",
	Short: "Compare two topology descriptions",
	Long: `Compare two topology descriptions and report semantic differences:
components, resources, mappings, edges and endpoints.

Examples:
  topogen diff project.old.yaml project.yaml
  topogen diff --format json old.yaml new.yaml
  topogen diff --name api old.yaml new.yaml
  topogen diff --strict old.yaml new.yaml

  # Category summary
  topogen diff --category old.yaml new.yaml
  topogen diff --category-detail old.yaml new.yaml

Severity overrides, ignores and custom categories are read from the
"diff" section of the settings file.`,
	Args: cobra.ExactArgs(2),
	Run:  runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text, json, markdown")
	diffCmd.Flags().StringVarP(&nameFilter, "name", "n", "", "Filter to one component, resource, edge or endpoint")
	diffCmd.Flags().StringVar(&severityMin, "severity", "info", "Minimum severity: info, warning, breaking")
	diffCmd.Flags().BoolVar(&strictMode, "strict", false, "Exit 1 if breaking changes detected")
	diffCmd.Flags().StringVar(&diffEnvFile, "env-file", "", "File with KEY=VALUE pairs used for ${VAR} substitution")
	diffCmd.Flags().BoolVar(&categoryMode, "category", false, "Show category summary report")
	diffCmd.Flags().BoolVar(&categoryDetail, "category-detail", false, "Show detailed category report")

	rootCmd.AddCommand(diffCmd)
}

type diffRequest struct {
	OldFile        string
	NewFile        string
	EnvFile        string
	Format         string
	Name           string
	Severity       string
	Strict         bool
	Category       bool
	CategoryDetail bool
}

func runDiff(cmd *cobra.Command, args []string) {
	code := runDiffRequest(cmd.Context(), cfg, diffRequest{
		OldFile:        args[0],
		NewFile:        args[1],
		EnvFile:        diffEnvFile,
		Format:         formatFlag,
		Name:           nameFilter,
		Severity:       severityMin,
		Strict:         strictMode,
		Category:       categoryMode,
		CategoryDetail: categoryDetail,
	}, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if code != exitOK {
		os.Exit(code)
	}
}

func runDiffRequest(ctx context.Context, s *settings.Settings, req diffRequest, stdout, stderr io.Writer) int {
	logger := logging.FromContext(ctx)

	r, err := s.Rules()
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("Error loading rules: %v", err))
		return exitError
	}

	oldProject, err := loadProject(ctx, req.OldFile, req.EnvFile)
	if err != nil {
		fmt.Fprint(stderr, reporter.ProblemsText(req.OldFile, "", err))
		return exitError
	}
	newProject, err := loadProject(ctx, req.NewFile, req.EnvFile)
	if err != nil {
		fmt.Fprint(stderr, reporter.ProblemsText(req.NewFile, "", err))
		return exitError
	}

	report := diff.Compare(oldProject, newProject)
	logger.Debug("compared projects", "old", req.OldFile, "new", req.NewFile, "changes", len(report.Changes))

	report = r.Apply(report)
	if req.Name != "" {
		report = diff.FilterByName(report, req.Name)
	}
	report = diff.FilterBySeverity(report, req.Severity)

	var out string
	switch {
	case req.CategoryDetail:
		out = reporter.ToCategoryDetail(report, req.OldFile, req.NewFile, r.Category)
	case req.Category:
		out = reporter.ToCategorySummary(report, req.OldFile, req.NewFile, r.Category)
	case req.Format == "json":
		data, err := json.MarshalIndent(reporter.ToJSON(report, req.OldFile, req.NewFile), "", "  ")
		if err != nil {
			fmt.Fprintln(stderr, color.RedString("Error generating JSON: %v", err))
			return exitError
		}
		out = string(data)
	case req.Format == "markdown":
		out = reporter.ToMarkdown(report, req.OldFile, req.NewFile)
	case req.Format == "text":
		out = reporter.ToText(report, req.OldFile, req.NewFile)
	default:
		fmt.Fprintln(stderr, color.RedString("Error: unknown format %q (expected text, json or markdown)", req.Format))
		return exitError
	}

	fmt.Fprintln(stdout, out)

	if req.Strict && report.Summary.BreakingCount > 0 {
		return exitFailure
	}
	return exitOK
}
