package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestLoadFileIncludesAndMerges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `id: base
components:
  web:
    path: src/web
    environment:
      MODE: development
      LOG: debug
resources:
  db:
    type: postgres
    image: postgres:15
`)
	path := writeFile(t, dir, "project.yaml", `include: base.yaml
id: demo
components:
  web:
    environment:
      MODE: production
`)

	node, err := LoadFile(context.Background(), path, nil)
	require.NoError(t, err)

	p, err := Read(node)
	require.NoError(t, err)

	assert.Equal(t, "demo", p.ID)
	web, ok := p.Component("web")
	require.True(t, ok)
	assert.Equal(t, "src/web", web.Path)
	mode, _ := web.Environment.Get("MODE")
	assert.Equal(t, "production", mode)
	assert.Equal(t, []string{"MODE", "LOG"}, web.Environment.Names())

	db, ok := p.Resource("db")
	require.True(t, ok)
	assert.Equal(t, "postgres:15", db.Image)
}

func TestLoadFileIncludeList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "parts"), 0755))
	writeFile(t, dir, "parts/a.yaml", "components:\n  a:\n    path: a\n")
	writeFile(t, dir, "parts/b.yaml", "components:\n  b:\n    path: b\n")
	path := writeFile(t, dir, "project.yaml", "id: demo\ninclude:\n  - parts/a.yaml\n  - parts/b.yaml\n")

	node, err := LoadFile(context.Background(), path, nil)
	require.NoError(t, err)
	p, err := Read(node)
	require.NoError(t, err)

	assert.Len(t, p.Components, 2)
}

func TestLoadFileRejectsCycles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: b.yaml\nid: a\n")
	path := writeFile(t, dir, "b.yaml", "include: a.yaml\nid: b\n")

	_, err := LoadFile(context.Background(), path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle: b.yaml -> a.yaml -> b.yaml")
}

func TestLoadFileMissingInclude(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "project.yaml", "include: nope.yaml\nid: demo\n")

	_, err := LoadFile(context.Background(), path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `include "nope.yaml"`)
}

func TestLoadBytesSubstitutesEnvironment(t *testing.T) {
	content := `id: ${PROJECT}
components:
  ${KEY_STAYS}:
    path: ${SRC:-src/web}
    environment:
      DB_HOST: ${DB_HOST}
`
	env := MapEnv(map[string]string{"PROJECT": "demo", "DB_HOST": "db.internal"})

	node, err := LoadBytes(context.Background(), []byte(content), t.TempDir(), env)
	require.NoError(t, err)
	p, err := Read(node)
	require.NoError(t, err)

	assert.Equal(t, "demo", p.ID)
	require.Len(t, p.Components, 1)
	assert.Equal(t, "${KEY_STAYS}", p.Components[0].ID)
	assert.Equal(t, "src/web", p.Components[0].Path)
	host, _ := p.Components[0].Environment.Get("DB_HOST")
	assert.Equal(t, "db.internal", host)
}

func TestLoadBytesRequiredVariable(t *testing.T) {
	_, err := LoadBytes(context.Background(), []byte("id: ${PROJECT:?project id is required}\n"), t.TempDir(), MapEnv(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project id is required")
}

func TestLoadBytesRejectsNonMapping(t *testing.T) {
	_, err := LoadBytes(context.Background(), []byte("- a\n- b\n"), t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a mapping")
}

func TestLoadBytesEmptyDocument(t *testing.T) {
	node, err := LoadBytes(context.Background(), []byte(""), t.TempDir(), nil)
	require.NoError(t, err)

	_, err = Read(node)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id: required field is missing")
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "project.yaml", `id: demo
components:
  web:
    path: ${WEB_PATH}
`)

	p, err := ReadFile(context.Background(), path, MapEnv(map[string]string{"WEB_PATH": "src/web"}))
	require.NoError(t, err)
	assert.Equal(t, path, p.Source)
	web, _ := p.Component("web")
	assert.Equal(t, "src/web", web.Path)

	broken := writeFile(t, dir, "broken.yaml", "id: demo\ncomponents:\n  web: {}\n")
	p, err = ReadFile(context.Background(), broken, nil)
	assert.Nil(t, p)
	assert.ErrorContains(t, err, "components.web.path")
}

func TestLoadBytesExpandsMergeKeys(t *testing.T) {
	doc := `id: demo
x-defaults: &defaults
  environment:
    A: "1"
  ports: ["8080"]
components:
  web:
    <<: *defaults
    path: src/web
  api:
    <<: [{path: src/override}, {path: src/api, environment: {B: "2"}}]
    ports: ["9090"]
`
	node, err := LoadBytes(context.Background(), []byte(doc), t.TempDir(), nil)
	require.NoError(t, err)
	p, err := Read(node)
	require.NoError(t, err)

	web, ok := p.Component("web")
	require.True(t, ok)
	assert.Equal(t, "src/web", web.Path)
	a, _ := web.Environment.Get("A")
	assert.Equal(t, "1", a)
	assert.Equal(t, []string{"8080"}, web.ExposedPorts)

	api, ok := p.Component("api")
	require.True(t, ok)
	assert.Equal(t, "src/override", api.Path)
	assert.Equal(t, []string{"B"}, api.Environment.Names())
	assert.Equal(t, []string{"9090"}, api.ExposedPorts)
}

func TestLoadBytesResolvesAliases(t *testing.T) {
	doc := `id: demo
components:
  web:
    path: src/web
    environment: &env
      MODE: ${MODE:-dev}
  api:
    path: src/api
    environment: *env
`
	node, err := LoadBytes(context.Background(), []byte(doc), t.TempDir(), MapEnv(map[string]string{}))
	require.NoError(t, err)
	p, err := Read(node)
	require.NoError(t, err)

	api, _ := p.Component("api")
	mode, ok := api.Environment.Get("MODE")
	assert.True(t, ok)
	assert.Equal(t, "dev", mode)
}

func TestLoadBytesRejectsBadMergeValue(t *testing.T) {
	_, err := LoadBytes(context.Background(), []byte("id: demo\ncomponents:\n  web:\n    <<: [1, 2]\n"), t.TempDir(), nil)
	assert.ErrorContains(t, err, "merge list entries must be mappings")
}
