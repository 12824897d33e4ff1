package diff

import (
	"testing"

	"github.com/stackgen-cli/topogen/internal/models"
)

func findChange(report *models.DiffReport, path string) (models.Change, bool) {
	for _, c := range report.Changes {
		if c.Path == path {
			return c, true
		}
	}
	return models.Change{}, false
}

func TestCompareComponents(t *testing.T) {
	old := &models.Project{
		ID: "demo",
		Components: []models.Component{
			{
				ID:   "api",
				Path: "src/api",
				Environment: models.Environment{
					{Name: "NODE_ENV", Value: "development"},
					{Name: "DATABASE_URL", Value: "postgres://old"},
				},
				ExposedPorts: []string{"8080:8080", "9229:9229"},
			},
			{ID: "worker", Path: "src/worker"},
		},
	}

	new := &models.Project{
		ID: "demo",
		Components: []models.Component{
			{
				ID:   "api",
				Path: "services/api",
				Environment: models.Environment{
					{Name: "NODE_ENV", Value: "production"},
					{Name: "API_KEY", Value: "secret"},
				},
				ExposedPorts: []string{"8080:8080"},
			},
			{ID: "web", Path: "src/web"},
		},
	}

	report := Compare(old, new)

	// Check summary
	if report.Summary.ComponentsAdded != 1 {
		t.Errorf("Expected 1 component added, got %d", report.Summary.ComponentsAdded)
	}
	if report.Summary.ComponentsRemoved != 1 {
		t.Errorf("Expected 1 component removed, got %d", report.Summary.ComponentsRemoved)
	}
	if report.Summary.ComponentsChanged != 1 {
		t.Errorf("Expected 1 component changed, got %d", report.Summary.ComponentsChanged)
	}

	tests := []struct {
		path     string
		kind     models.ChangeKind
		severity models.Severity
	}{
		{"components.web", models.ChangeAdded, models.SeverityInfo},
		{"components.worker", models.ChangeRemoved, models.SeverityBreaking},
		{"components.api.path", models.ChangeModified, models.SeverityWarning},
		{"components.api.environment.NODE_ENV", models.ChangeModified, models.SeverityWarning},
		{"components.api.environment.DATABASE_URL", models.ChangeRemoved, models.SeverityBreaking},
		{"components.api.environment.API_KEY", models.ChangeAdded, models.SeverityInfo},
		{"components.api.ports.9229:9229", models.ChangeRemoved, models.SeverityBreaking},
	}

	for _, tt := range tests {
		c, ok := findChange(report, tt.path)
		if !ok {
			t.Errorf("Expected change at %s not found", tt.path)
			continue
		}
		if c.Kind != tt.kind {
			t.Errorf("%s: kind = %s, want %s", tt.path, c.Kind, tt.kind)
		}
		if c.Severity != tt.severity {
			t.Errorf("%s: severity = %s, want %s", tt.path, c.Severity, tt.severity)
		}
	}

	if report.Summary.TotalChanges != len(tests) {
		t.Errorf("Expected %d changes, got %d", len(tests), report.Summary.TotalChanges)
	}
}

func TestCompareResources(t *testing.T) {
	old := &models.Project{
		ID: "demo",
		Resources: []models.Resource{
			{ID: "db", Type: "postgres", Image: "postgres:15"},
			{ID: "cache", Type: "redis", Image: "redis:7"},
		},
	}
	new := &models.Project{
		ID: "demo",
		Resources: []models.Resource{
			{ID: "db", Type: "postgres", Image: "postgres:16"},
			{ID: "cache", Type: "memcached", Image: "redis:7"},
		},
	}
	new.Mappings = []models.MappedResource{
		models.NewMappedResource(&new.Resources[0], models.Override{Path: "./dev/db"}),
	}

	report := Compare(old, new)

	if c, ok := findChange(report, "resources.db.image"); !ok || c.Severity != models.SeverityWarning {
		t.Errorf("Expected warning for major image change, got %+v", c)
	}
	if c, ok := findChange(report, "resources.cache.type"); !ok || c.Severity != models.SeverityBreaking {
		t.Errorf("Expected breaking type change, got %+v", c)
	}
	if c, ok := findChange(report, "mappings.db"); !ok || c.Kind != models.ChangeAdded {
		t.Errorf("Expected mapping addition, got %+v", c)
	}
	if report.Summary.ResourcesChanged != 2 {
		t.Errorf("Expected 2 resources changed, got %d", report.Summary.ResourcesChanged)
	}
}

func TestCompareEdgesAndEndpoints(t *testing.T) {
	tls := &models.TLSConfig{Certificate: "web.crt", Key: "web.key"}
	old := &models.Project{
		ID:         "demo",
		Components: []models.Component{{ID: "web", Path: "src"}},
		Topology: models.Topology{
			"public": models.Edge{
				"site": {Target: "web", Type: models.EdgeHTTPS, TLS: tls},
				"docs": {Target: "web", Type: models.EdgeHTTP},
			},
		},
		Endpoints: []models.Endpoint{
			{Name: "api", Target: "web", Port: models.PortMapping{External: 8443, Internal: 8080}, Type: models.EdgeHTTPS},
			{Name: "admin", Target: "web", Port: models.PortMapping{External: 9000, Internal: 9000}, Type: models.EdgeHTTP},
		},
	}
	new := &models.Project{
		ID:         "demo",
		Components: []models.Component{{ID: "web", Path: "src"}},
		Topology: models.Topology{
			"public": models.Edge{
				"site": {Target: "web", Type: models.EdgeHTTPS},
			},
		},
		Endpoints: []models.Endpoint{
			{Name: "api", Target: "web", Port: models.PortMapping{External: 8443, Internal: 8081}, Type: models.EdgeHTTPS},
		},
	}

	report := Compare(old, new)

	tests := []struct {
		path     string
		kind     models.ChangeKind
		severity models.Severity
	}{
		{"topology.public.docs", models.ChangeRemoved, models.SeverityBreaking},
		{"topology.public.site.tls", models.ChangeRemoved, models.SeverityBreaking},
		{"endpoints.admin", models.ChangeRemoved, models.SeverityBreaking},
		{"endpoints.api.port", models.ChangeModified, models.SeverityInfo},
	}

	for _, tt := range tests {
		c, ok := findChange(report, tt.path)
		if !ok {
			t.Errorf("Expected change at %s not found", tt.path)
			continue
		}
		if c.Kind != tt.kind || c.Severity != tt.severity {
			t.Errorf("%s: got %s/%s, want %s/%s", tt.path, c.Kind, c.Severity, tt.kind, tt.severity)
		}
	}

	if c, _ := findChange(report, "topology.public.docs"); c.Name != "public/docs" {
		t.Errorf("Expected sub-edge name public/docs, got %q", c.Name)
	}
}

func TestCompareIdentical(t *testing.T) {
	p := &models.Project{
		ID:         "demo",
		Components: []models.Component{{ID: "web", Path: "src", ExposedPorts: []string{"80:80"}}},
		Resources:  []models.Resource{{ID: "db", Type: "postgres", Image: "postgres:16"}},
	}

	report := Compare(p, p)
	if report.Summary.TotalChanges != 0 {
		t.Errorf("Expected no changes, got %d: %+v", report.Summary.TotalChanges, report.Changes)
	}
}

func TestFilterBySeverity(t *testing.T) {
	report := models.NewDiffReport()
	report.AddChange(models.Change{Path: "a", Severity: models.SeverityInfo})
	report.AddChange(models.Change{Path: "b", Severity: models.SeverityWarning})
	report.AddChange(models.Change{Path: "c", Severity: models.SeverityBreaking})

	filtered := FilterBySeverity(report, "warning")
	if len(filtered.Changes) != 2 {
		t.Errorf("Expected 2 changes, got %d", len(filtered.Changes))
	}

	filtered = FilterBySeverity(report, "breaking")
	if len(filtered.Changes) != 1 {
		t.Errorf("Expected 1 change, got %d", len(filtered.Changes))
	}

	// Summary is kept from the unfiltered report
	if filtered.Summary.TotalChanges != 3 {
		t.Errorf("Expected summary total 3, got %d", filtered.Summary.TotalChanges)
	}
}

func TestFilterByName(t *testing.T) {
	report := models.NewDiffReport()
	report.AddChange(models.Change{Name: "api", Path: "components.api.path"})
	report.AddChange(models.Change{Name: "db", Path: "resources.db.image"})
	report.AddChange(models.Change{Name: "api", Path: "components.api.environment.X"})

	filtered := FilterByName(report, "api")
	if len(filtered.Changes) != 2 {
		t.Errorf("Expected 2 changes for api, got %d", len(filtered.Changes))
	}
}
