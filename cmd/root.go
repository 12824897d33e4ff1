package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/compose-spec/compose-go/v2/dotenv"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stackgen-cli/topogen/internal/logging"
	"github.com/stackgen-cli/topogen/internal/models"
	"github.com/stackgen-cli/topogen/internal/parser"
	"github.com/stackgen-cli/topogen/internal/settings"
)

// Exit codes shared by every command.
const (
	exitOK      = 0
	exitFailure = 1 // drift, or breaking changes in strict mode
	exitError   = 2
)

var (
	version    = "1.0.0"
	colorMode  string
	configPath string
	logLevel   string
	logFormat  string

	cfg *settings.Settings
)

var rootCmd = &cobra.Command{
	Use:   "topogen",
	Short: "Generate deployment manifests from a topology description",
	Long: color.New(color.FgCyan).Sprint(`
topogen - Topology Manifest Generator

`) + `Describe components, resources, edges and endpoints once and render
them as a Compose file or a directory of cluster manifests.

` + color.New(color.FgYellow).Sprint(`Nothing is deployed. Output is only written when generation succeeds.
`),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch colorMode {
		case "never":
			color.NoColor = true
		case "always":
			color.NoColor = false
		}

		s, err := settings.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = s

		logger, err := logging.New(s.Log.Format, s.Log.Level)
		if err != nil {
			return err
		}
		if s.File != "" {
			logger.Debug("settings loaded", "file", s.File)
		}
		cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		return nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(exitError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Color output: auto, always, never")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default: .topogen.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text, json")
}

// projectEnv resolves ${VAR} references from the process environment first
// and the optional env file second.
func projectEnv(envFile string) (parser.Env, error) {
	if envFile == "" {
		return parser.OSEnv, nil
	}
	values, err := dotenv.Read(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}
	return func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := values[name]
		return v, ok
	}, nil
}

// loadProject reads and validates one topology file.
func loadProject(ctx context.Context, path, envFile string) (*models.Project, error) {
	env, err := projectEnv(envFile)
	if err != nil {
		return nil, err
	}
	return parser.ReadFile(ctx, path, env)
}
