package naming

import (
	"testing"

	"github.com/stackgen-cli/topogen/internal/models"
)

func TestServiceName(t *testing.T) {
	tests := []struct {
		id       string
		expected string
	}{
		{"webapp", "webapp"},
		{"My-App", "myapp"},
		{"my_app", "myapp"},
		{"src/web app", "srcwebapp"},
		{"public/web", "publicweb"},
		{"", ""},
		{"-_/ ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := ServiceName(tt.id); got != tt.expected {
				t.Errorf("ServiceName(%q) = %q, want %q", tt.id, got, tt.expected)
			}
		})
	}
}

func TestImageName(t *testing.T) {
	tests := []struct {
		project  string
		id       string
		expected string
	}{
		{"demo", "webapp", "demo/webapp"},
		{"Demo", "Web-App", "demo/web_app"},
		{"my project", "api_v2", "my_project/api_v2"},
	}

	for _, tt := range tests {
		t.Run(tt.project+"/"+tt.id, func(t *testing.T) {
			if got := ImageName(tt.project, tt.id); got != tt.expected {
				t.Errorf("ImageName(%q, %q) = %q, want %q", tt.project, tt.id, got, tt.expected)
			}
		})
	}
}

func TestPortDefinition(t *testing.T) {
	if got := PortDefinition(models.EdgeHTTP); got != "80:80" {
		t.Errorf("http port definition = %q", got)
	}
	if got := PortDefinition(models.EdgeHTTPS); got != "443:443" {
		t.Errorf("https port definition = %q", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for an edge type outside the enumeration")
		}
	}()
	PortDefinition(models.EdgeType(99))
}

func TestEnvEntries(t *testing.T) {
	env := models.Environment{
		{Name: "ZED", Value: "last"},
		{Name: "ALPHA", Value: "a=b"},
		{Name: "EMPTY", Value: ""},
	}

	got := EnvEntries(env)
	want := []string{"ZED=last", "ALPHA=a=b", "EMPTY="}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}

	if len(EnvEntries(nil)) != 0 {
		t.Error("expected no entries for an empty environment")
	}
}

func TestRegistryCollisions(t *testing.T) {
	r := NewRegistry()
	r.Claim(ServiceName("my-app"), Owner{Kind: "component", ID: "my-app"})
	r.Claim(ServiceName("my_app"), Owner{Kind: "component", ID: "my_app"})
	r.Claim(ServiceName("db"), Owner{Kind: "resource", ID: "db"})

	collisions := r.Collisions()
	if len(collisions) != 1 {
		t.Fatalf("expected 1 collision, got %d", len(collisions))
	}
	c := collisions[0]
	if c.Name != "myapp" || len(c.Owners) != 2 {
		t.Errorf("unexpected collision %+v", c)
	}
	if c.Error() != `component "my-app" and component "my_app" both normalize to "myapp"` {
		t.Errorf("unexpected message %q", c.Error())
	}

	owner, ok := r.Owner("db")
	if !ok || owner.ID != "db" {
		t.Errorf("expected db to be owned by resource db, got %+v", owner)
	}
}

func TestValidateLabel(t *testing.T) {
	valid := []string{"webapp", "api2", "a-b"}
	for _, name := range valid {
		if err := ValidateLabel(name); err != nil {
			t.Errorf("ValidateLabel(%q) unexpected error: %v", name, err)
		}
	}

	invalid := []string{"", "Web", "a.b", "-lead", "name-that-is-definitely-far-too-long-to-be-a-valid-dns-label-xyz"}
	for _, name := range invalid {
		if err := ValidateLabel(name); err == nil {
			t.Errorf("ValidateLabel(%q) expected error", name)
		}
	}
}

func TestValidatePortAndLabelValue(t *testing.T) {
	if err := ValidatePortName("tcp-8080"); err != nil {
		t.Errorf("ValidatePortName(tcp-8080) unexpected error: %v", err)
	}
	if err := ValidatePortName("tcp-808080808080"); err == nil {
		t.Error("ValidatePortName expected error for a name longer than 15 characters")
	}

	if err := ValidateLabelValue("my_shop.v2"); err != nil {
		t.Errorf("ValidateLabelValue unexpected error: %v", err)
	}
	if err := ValidateLabelValue("my shop"); err == nil {
		t.Error("ValidateLabelValue expected error for a value with a space")
	}
}

func TestEdgePortAndSubEdgeName(t *testing.T) {
	if got := EdgePort(models.EdgeHTTP); got != 80 {
		t.Errorf("EdgePort(http) = %d, want 80", got)
	}
	if got := EdgePort(models.EdgeHTTPS); got != 443 {
		t.Errorf("EdgePort(https) = %d, want 443", got)
	}

	def := models.SubEdgeDef{EdgeID: "public", SubEdgeID: "web-site"}
	if got := SubEdgeName(def); got != "publicwebsite" {
		t.Errorf("SubEdgeName = %q, want publicwebsite", got)
	}
}
