package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stackgen-cli/topogen/internal/generator"
	"github.com/stackgen-cli/topogen/internal/reporter"
	"github.com/stackgen-cli/topogen/internal/settings"
)

var (
	validateBackend string
	validateFormat  string
	validateEnvFile string
)

var validateCmd = &cobra.Command{
	Use:   "validate <project.yaml>",
	Short: "Check a topology without rendering it",
	Long: `Check a topology description and report every problem found.

With --backend the backend preconditions are checked as well, e.g. that
every resource carries an image reference.

Examples:
  topogen validate project.yaml
  topogen validate -b cluster project.yaml
  topogen validate -f json project.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateBackend, "backend", "b", "", "Also check the preconditions of a backend: compose, cluster")
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format: text, json")
	validateCmd.Flags().StringVar(&validateEnvFile, "env-file", "", "File with KEY=VALUE pairs used for ${VAR} substitution")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	backend := ""
	if cmd.Flags().Changed("backend") {
		backend = validateBackend
	}

	code := validate(cmd.Context(), cfg, validateRequest{
		Project: args[0],
		Backend: backend,
		Format:  validateFormat,
		EnvFile: validateEnvFile,
	}, cmd.OutOrStdout())
	if code != exitOK {
		os.Exit(code)
	}
}

type validateRequest struct {
	Project string
	Backend string // empty skips backend preconditions
	Format  string
	EnvFile string
}

func validate(ctx context.Context, s *settings.Settings, req validateRequest, stdout io.Writer) int {
	if req.Format != "text" && req.Format != "json" {
		fmt.Fprintln(stdout, color.RedString("Error: unknown format %q (expected text or json)", req.Format))
		return exitError
	}

	err := checkProject(ctx, s, req)

	switch req.Format {
	case "json":
		data, jerr := json.MarshalIndent(reporter.ToProblemsJSON(req.Project, req.Backend, err), "", "  ")
		if jerr != nil {
			fmt.Fprintln(stdout, color.RedString("Error generating JSON: %v", jerr))
			return exitError
		}
		fmt.Fprintln(stdout, string(data))
	default:
		fmt.Fprint(stdout, reporter.ProblemsText(req.Project, req.Backend, err))
	}

	if err != nil {
		return exitError
	}
	return exitOK
}

func checkProject(ctx context.Context, s *settings.Settings, req validateRequest) error {
	p, err := loadProject(ctx, req.Project, req.EnvFile)
	if err != nil {
		return err
	}
	if req.Backend == "" {
		return nil
	}

	backend, err := generator.ParseBackend(req.Backend)
	if err != nil {
		return err
	}
	g, err := generator.New(backend, s.Generate.Options())
	if err != nil {
		return err
	}
	return g.Check(p)
}
