// Package settings loads tool settings from the settings file, the
// TOPOGEN_* environment and command-line flags, in increasing priority.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stackgen-cli/topogen/internal/generator"
	"github.com/stackgen-cli/topogen/internal/rules"
)

// EnvPrefix prefixes every environment override, e.g. TOPOGEN_LOG_LEVEL.
const EnvPrefix = "TOPOGEN"

// Candidates are the settings file names looked up in the working directory.
var Candidates = []string{
	".topogen.yaml",
	".topogen.yml",
	"topogen.yaml",
	"topogen.yml",
}

// Settings holds all tool settings.
type Settings struct {
	Log      LogSettings      `mapstructure:"log"`
	Generate GenerateSettings `mapstructure:"generate"`
	Diff     rules.Config     `mapstructure:"diff"`

	// File is the settings file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// LogSettings holds logging settings.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GenerateSettings holds rendering settings.
type GenerateSettings struct {
	Backend        string `mapstructure:"backend"`
	Indent         int    `mapstructure:"indent"`
	ComposeVersion string `mapstructure:"compose_version"`
	Restart        string `mapstructure:"restart"`
	ProxyImage     string `mapstructure:"proxy_image"`
	IncludeEdges   bool   `mapstructure:"include_edges"`
	Replicas       int    `mapstructure:"replicas"`
	Namespace      string `mapstructure:"namespace"`
}

// Options converts the settings into generator options.
func (g GenerateSettings) Options() generator.Options {
	return generator.Options{
		Indent:         g.Indent,
		ComposeVersion: g.ComposeVersion,
		Restart:        g.Restart,
		ProxyImage:     g.ProxyImage,
		IncludeEdges:   g.IncludeEdges,
		Replicas:       g.Replicas,
		Namespace:      g.Namespace,
	}
}

// FlagKeys maps settings keys to the flag names that override them.
var FlagKeys = map[string]string{
	"log.level":          "log-level",
	"log.format":         "log-format",
	"generate.backend":   "backend",
	"generate.namespace": "namespace",
	"generate.replicas":  "replicas",
	"generate.indent":    "indent",
}

// Discover returns the first settings file found in dir, or "".
func Discover(dir string) string {
	for _, name := range Candidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads the settings file at path, or the discovered one in the working
// directory when path is empty, and layers environment and flags on top.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	file := path
	if file == "" {
		file = Discover(".")
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings %s: %w", file, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.File = file

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	opts := generator.DefaultOptions()

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetDefault("generate.backend", generator.Compose.String())
	v.SetDefault("generate.indent", opts.Indent)
	v.SetDefault("generate.compose_version", opts.ComposeVersion)
	v.SetDefault("generate.restart", opts.Restart)
	v.SetDefault("generate.proxy_image", opts.ProxyImage)
	v.SetDefault("generate.include_edges", opts.IncludeEdges)
	v.SetDefault("generate.replicas", opts.Replicas)
	v.SetDefault("generate.namespace", opts.Namespace)
}

func (s *Settings) validate() error {
	if _, err := generator.ParseBackend(s.Generate.Backend); err != nil {
		return fmt.Errorf("generate.backend: %w", err)
	}
	if s.Generate.Indent < 1 {
		return fmt.Errorf("generate.indent: must be at least 1, got %d", s.Generate.Indent)
	}
	if s.Generate.Replicas < 1 {
		return fmt.Errorf("generate.replicas: must be at least 1, got %d", s.Generate.Replicas)
	}
	return nil
}

// Rules compiles the diff section.
func (s *Settings) Rules() (*rules.Rules, error) {
	r, err := rules.Compile(s.Diff)
	if err != nil {
		return nil, fmt.Errorf("diff rules: %w", err)
	}
	return r, nil
}
