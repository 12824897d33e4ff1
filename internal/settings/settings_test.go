package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stackgen-cli/topogen/internal/generator"
	"github.com/stackgen-cli/topogen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, s.File)
	assert.Equal(t, "warn", s.Log.Level)
	assert.Equal(t, "compose", s.Generate.Backend)
	assert.Equal(t, generator.DefaultOptions(), s.Generate.Options())
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Discover(dir))

	writeFile(t, dir, "topogen.yml", "log:\n  level: info\n")
	assert.Equal(t, filepath.Join(dir, "topogen.yml"), Discover(dir))

	writeFile(t, dir, ".topogen.yaml", "log:\n  level: info\n")
	assert.Equal(t, filepath.Join(dir, ".topogen.yaml"), Discover(dir))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.yaml", `
log:
  level: debug
  format: json
generate:
  backend: cluster
  namespace: shop
  replicas: 3
  include_edges: false
diff:
  severity_overrides:
    - pattern: "components.*.environment.DEBUG"
      severity: info
  target_ignores:
    API:
      fields: [ports]
`)

	s, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, s.File)
	assert.Equal(t, "json", s.Log.Format)
	opts := s.Generate.Options()
	assert.Equal(t, "shop", opts.Namespace)
	assert.Equal(t, 3, opts.Replicas)
	assert.False(t, opts.IncludeEdges)
	assert.Equal(t, "nginx:stable", opts.ProxyImage)

	r, err := s.Rules()
	require.NoError(t, err)
	sev, ok := r.GetSeverityOverride("components.api.environment.DEBUG")
	assert.True(t, ok)
	assert.Equal(t, models.SeverityInfo, sev)
	assert.True(t, r.ShouldIgnoreTargetField("api", "ports"))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.yaml", "generate:\n  namespace: from-file\n")
	t.Setenv("TOPOGEN_GENERATE_NAMESPACE", "from-env")

	s, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.Generate.Namespace)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOPOGEN_LOG_LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "warn", "")
	flags.String("backend", "compose", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "debug"}))

	s, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "compose", s.Generate.Backend)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "generate:\n  backend: helm\n")
	_, err = Load(bad, nil)
	assert.ErrorContains(t, err, "generate.backend")

	replicas := writeFile(t, dir, "replicas.yaml", "generate:\n  replicas: 0\n")
	_, err = Load(replicas, nil)
	assert.ErrorContains(t, err, "generate.replicas")

	rules := writeFile(t, dir, "rules.yaml", "diff:\n  severity_overrides:\n    - pattern: x\n      severity: fatal\n")
	s, err := Load(rules, nil)
	require.NoError(t, err)
	_, err = s.Rules()
	assert.ErrorContains(t, err, "unknown severity")
}
