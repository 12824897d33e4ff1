package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stackgen-cli/topogen/internal/generator"
	"github.com/stackgen-cli/topogen/internal/logging"
	"github.com/stackgen-cli/topogen/internal/output"
	"github.com/stackgen-cli/topogen/internal/reporter"
	"github.com/stackgen-cli/topogen/internal/settings"
	"github.com/stackgen-cli/topogen/internal/verify"
)

var (
	backendFlag  string
	outputPath   string
	checkMode    bool
	verifyOutput bool
	noEdges      bool
	envFile      string
	namespace    string
	replicas     int
	indent       int
)

var generateCmd = &cobra.Command{
	Use:   "generate <project.yaml>",
	Short: "Render a topology into backend manifests",
	Long: `Render a topology description into deployment manifests.

The compose backend writes a single file; the cluster backend writes one
deployment per component and resource, plus a service for each exposed one,
into an existing directory.

Examples:
  topogen generate project.yaml -b compose -o docker-compose.yml
  topogen generate project.yaml -b cluster -o manifests/
  topogen generate project.yaml -o docker-compose.yml --env-file .env

  # Fail when the committed output is stale
  topogen generate --check project.yaml -o docker-compose.yml`,
	Args: cobra.ExactArgs(1),
	Run:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&backendFlag, "backend", "b", "compose", "Backend: compose, cluster")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (compose) or existing directory (cluster)")
	generateCmd.Flags().BoolVar(&checkMode, "check", false, "Compare with the existing output instead of writing it; exit 1 on drift")
	generateCmd.Flags().BoolVar(&verifyOutput, "verify", false, "Load the rendered manifests with the upstream libraries before writing")
	generateCmd.Flags().BoolVar(&noEdges, "no-edges", false, "Do not render proxy services for sub-edges (compose)")
	generateCmd.Flags().StringVar(&envFile, "env-file", "", "File with KEY=VALUE pairs used for ${VAR} substitution")
	generateCmd.Flags().StringVar(&namespace, "namespace", "", "Namespace for cluster manifests")
	generateCmd.Flags().IntVar(&replicas, "replicas", 1, "Replicas per deployment (cluster)")
	generateCmd.Flags().IntVar(&indent, "indent", 2, "Spaces per indentation level")
	generateCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(generateCmd)
}

type generateRequest struct {
	Project string
	Output  string
	EnvFile string
	Check   bool
	Verify  bool
	Time    time.Time
}

func runGenerate(cmd *cobra.Command, args []string) {
	s := *cfg
	if noEdges {
		s.Generate.IncludeEdges = false
	}

	code := generate(cmd.Context(), &s, generateRequest{
		Project: args[0],
		Output:  outputPath,
		EnvFile: envFile,
		Check:   checkMode,
		Verify:  verifyOutput,
		Time:    time.Now(),
	}, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if code != exitOK {
		os.Exit(code)
	}
}

func generate(ctx context.Context, s *settings.Settings, req generateRequest, stdout, stderr io.Writer) int {
	logger := logging.FromContext(ctx)

	backend, err := generator.ParseBackend(s.Generate.Backend)
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("Error: %v", err))
		return exitError
	}

	g, err := generator.New(backend, s.Generate.Options())
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("Error: %v", err))
		return exitError
	}

	if err := output.CheckTarget(g.Target(), req.Output); err != nil {
		fmt.Fprint(stderr, reporter.ProblemsText(req.Output, backend.String(), err))
		return exitError
	}

	p, err := loadProject(ctx, req.Project, req.EnvFile)
	if err != nil {
		fmt.Fprint(stderr, reporter.ProblemsText(req.Project, "", err))
		return exitError
	}

	meta := generator.Meta{Tool: generator.ToolName, Version: version, Source: req.Project, Time: req.Time}
	out, err := g.Generate(p, meta)
	if err != nil {
		fmt.Fprint(stderr, reporter.ProblemsText(req.Project, backend.String(), err))
		return exitError
	}
	logger.Info("rendered project", "project", p.ID, "backend", backend, "files", len(out.Files))

	if req.Verify {
		if err := verifyRendered(ctx, backend, p.ID, out); err != nil {
			fmt.Fprintln(stderr, color.RedString("Verification failed: %v", err))
			return exitError
		}
		logger.Debug("rendered output verified", "backend", backend)
	}

	if req.Check {
		drifted, err := output.Drift(g.Target(), req.Output, out)
		if err != nil {
			fmt.Fprintln(stderr, color.RedString("Error: %v", err))
			return exitError
		}
		if len(drifted) > 0 {
			fmt.Fprintln(stdout, color.YellowString("Output is out of date:"))
			for _, name := range drifted {
				fmt.Fprintf(stdout, "  ~ %s\n", name)
			}
			return exitFailure
		}
		fmt.Fprintln(stdout, color.GreenString("✓ %s is up to date", req.Output))
		return exitOK
	}

	if err := output.Commit(g.Target(), req.Output, out); err != nil {
		fmt.Fprint(stderr, reporter.ProblemsText(req.Output, backend.String(), err))
		return exitError
	}
	fmt.Fprintln(stdout, color.GreenString("✓ wrote %d file(s) to %s", len(out.Files), req.Output))
	return exitOK
}

func verifyRendered(ctx context.Context, backend generator.Backend, projectID string, out *generator.Output) error {
	switch backend {
	case generator.Compose:
		_, err := verify.Compose(ctx, projectID, out.Files[0].Content)
		return err
	case generator.Cluster:
		_, err := verify.Cluster(out.Files)
		return err
	}
	return fmt.Errorf("no verifier for backend %s", backend)
}
