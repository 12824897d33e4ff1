package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProject() *Project {
	return &Project{
		ID: "demo",
		Components: []Component{
			{ID: "worker", Path: "src/worker"},
			{ID: "api", Path: "src/api"},
			{ID: "Zeta", Path: "src/zeta"},
		},
		Resources: []Resource{
			{ID: "queue", Type: "rabbitmq", Image: "rabbitmq:3"},
			{ID: "db", Type: "postgres"},
		},
		Topology: Topology{
			"public": Edge{
				"web":   {Target: "api", Type: EdgeHTTP},
				"admin": {Target: "api", Type: EdgeHTTPS},
			},
			"internal": Edge{
				"jobs": {Target: "worker", Type: EdgeHTTP},
			},
		},
		Endpoints: []Endpoint{
			{Name: "status", Target: "api", Port: PortMapping{External: 9000, Internal: 9000}, Type: EdgeHTTP},
			{Name: "metrics", Target: "worker", Port: PortMapping{External: 9100, Internal: 9100}, Type: EdgeHTTP},
		},
	}
}

func TestSortedAccessors(t *testing.T) {
	p := sampleProject()

	var ids []string
	for _, c := range p.SortedComponents() {
		ids = append(ids, c.ID)
	}
	// case-sensitive: upper-case sorts first
	assert.Equal(t, []string{"Zeta", "api", "worker"}, ids)

	ids = nil
	for _, r := range p.SortedResources() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"db", "queue"}, ids)

	// declaration order is untouched
	assert.Equal(t, "worker", p.Components[0].ID)
	assert.Equal(t, "queue", p.Resources[0].ID)
}

func TestSubEdgesOrder(t *testing.T) {
	p := sampleProject()

	var got []string
	for _, def := range p.Topology.SubEdges() {
		got = append(got, def.ID())
	}
	assert.Equal(t, []string{"internal/jobs", "public/admin", "public/web"}, got)
}

func TestTargetResolution(t *testing.T) {
	p := sampleProject()

	assert.Equal(t, TargetComponent, p.TargetKind("api"))
	assert.Equal(t, TargetResource, p.TargetKind("db"))
	assert.Equal(t, TargetNone, p.TargetKind("cache"))
	assert.False(t, p.HasTarget("cache"))

	subs := p.SubEdgesFor("api")
	require.Len(t, subs, 2)
	assert.Equal(t, "admin", subs[0].SubEdgeID)

	eps := p.EndpointsFor("worker")
	require.Len(t, eps, 1)
	assert.Equal(t, "metrics", eps[0].Name)
}

func TestMappedResourceKeepsOriginal(t *testing.T) {
	p := sampleProject()
	original := &p.Resources[1]
	m := NewMappedResource(original, Override{Path: "./dev/db", Links: []string{"api"}})

	assert.Equal(t, "db", m.ID)
	assert.Equal(t, "postgres", m.Type)
	assert.Same(t, original, m.Original)
}

func TestParseEdgeType(t *testing.T) {
	tests := []struct {
		in      string
		want    EdgeType
		wantErr bool
	}{
		{"http", EdgeHTTP, false},
		{"HTTP", EdgeHTTP, false},
		{"Https", EdgeHTTPS, false},
		{"tcp", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEdgeType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvironment(t *testing.T) {
	env := Environment{{Name: "B", Value: "2"}, {Name: "A", Value: "1"}}

	v, ok := env.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, []string{"B", "A"}, env.Names())
	assert.Equal(t, []string{"A", "B"}, env.Sorted().Names())
	assert.Equal(t, []string{"B", "A"}, env.Names(), "Sorted must not reorder the receiver")
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		NewValidationError(ErrInvalidInput, "components.api.path", "required field is missing"),
		{Kind: ErrUnresolvedReference, Field: "topology.public.web.target", Line: 7, Message: `unknown target "cache"`},
	}

	err := errs.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, errors.Is(err, ErrUnresolvedReference))
	assert.False(t, errors.Is(err, ErrPrecondition))
	assert.Contains(t, err.Error(), "2 problems")
	assert.Contains(t, err.Error(), "(line 7)")

	wrapped := fmt.Errorf("reading project: %w", err)
	list, ok := AsValidationErrors(wrapped)
	require.True(t, ok)
	assert.Len(t, list, 2)

	assert.NoError(t, ValidationErrors(nil).Err())
}
