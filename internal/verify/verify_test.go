package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stackgen-cli/topogen/internal/generator"
	"github.com/stackgen-cli/topogen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var meta = generator.Meta{Tool: "topogen", Version: "test", Source: "project.yaml", Time: time.Unix(0, 0)}

func shop() *models.Project {
	return &models.Project{
		ID: "shop",
		Components: []models.Component{
			{ID: "web", Path: "src/web", ExposedPorts: []string{"3000:3000"}},
			{ID: "api", Path: "src/api", Environment: models.Environment{{Name: "MODE", Value: "prod"}}, ExposedPorts: []string{"8080"}},
		},
		Resources: []models.Resource{
			{ID: "db", Type: "postgres", Image: "postgres:16", ExposedPorts: []string{"5432"}},
		},
		Topology: models.Topology{
			"public": {"site": {Type: models.EdgeHTTP, Target: "web"}},
		},
		Endpoints: []models.Endpoint{
			{Name: "admin", Type: models.EdgeHTTP, Target: "api", Port: models.PortMapping{External: 8443, Internal: 8080}},
		},
	}
}

func generate(t *testing.T, backend generator.Backend, p *models.Project) *generator.Output {
	t.Helper()
	g, err := generator.New(backend, generator.DefaultOptions())
	require.NoError(t, err)
	out, err := g.Generate(p, meta)
	require.NoError(t, err)
	return out
}

func TestComposeOutputLoads(t *testing.T) {
	out := generate(t, generator.Compose, shop())

	proj, err := Compose(context.Background(), "shop", out.Files[0].Content)
	require.NoError(t, err)

	for _, name := range []string{"web", "api", "db", "publicsite"} {
		assert.Contains(t, proj.Services, name)
	}
	assert.Equal(t, "shop/api", proj.Services["api"].Image)
	assert.Len(t, proj.Services["api"].Ports, 2)
}

func TestComposeRejectsMalformed(t *testing.T) {
	_, err := Compose(context.Background(), "demo", "services:\n  web:\n    ports: 12\n")
	assert.Error(t, err)
}

func TestClusterOutputDecodes(t *testing.T) {
	g, err := generator.New(generator.Cluster, generator.Options{Indent: 2, Replicas: 2, Namespace: "shop"})
	require.NoError(t, err)
	out, err := g.Generate(shop(), meta)
	require.NoError(t, err)

	objs, err := Cluster(out.Files)
	require.NoError(t, err)
	assert.Len(t, objs.Deployments, 3)
	assert.Len(t, objs.Services, 3)

	for _, d := range objs.Deployments {
		require.NotNil(t, d.Spec.Replicas)
		assert.Equal(t, int32(2), *d.Spec.Replicas)
		assert.Equal(t, "shop", d.Namespace)
		assert.Equal(t, d.Spec.Selector.MatchLabels, d.Spec.Template.Labels)
	}
}

func TestClusterRejectsUnknownFields(t *testing.T) {
	files := []generator.File{{
		Name:    "web-service.yaml",
		Content: "apiVersion: v1\nkind: Service\nmetadata:\n  name: web\nspec:\n  flavour: large\n",
	}}
	_, err := Cluster(files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "web-service.yaml")
}

func TestClusterRejectsUnexpectedKinds(t *testing.T) {
	files := []generator.File{{Name: "x.yaml", Content: "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: x\n"}}
	_, err := Cluster(files)
	assert.ErrorContains(t, err, "unexpected object v1 ConfigMap")
}

func TestClusterRejectsBadNames(t *testing.T) {
	files := []generator.File{{
		Name:    "web-deployment.yaml",
		Content: "apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: Web_App\nspec:\n  template:\n    spec:\n      containers:\n        - name: web\n          image: nginx\n",
	}}
	_, err := Cluster(files)
	assert.ErrorContains(t, err, "invalid name")
}
