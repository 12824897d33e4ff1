package generator

import (
	"testing"

	"github.com/stackgen-cli/topogen/internal/writer"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		input   string
		want    Backend
		wantErr bool
	}{
		{"compose", Compose, false},
		{"Cluster", Cluster, false},
		{"helm", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBackend(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBackend(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBackend(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewTargets(t *testing.T) {
	for _, b := range []Backend{Compose, Cluster} {
		g, err := New(b, DefaultOptions())
		if err != nil {
			t.Fatalf("New(%s) failed: %v", b, err)
		}
		if g.Backend() != b {
			t.Errorf("New(%s).Backend() = %s", b, g.Backend())
		}
	}

	compose, _ := New(Compose, DefaultOptions())
	if compose.Target() != TargetFile {
		t.Errorf("compose target = %s, want file", compose.Target())
	}
	cluster, _ := New(Cluster, DefaultOptions())
	if cluster.Target() != TargetDirectory {
		t.Errorf("cluster target = %s, want directory", cluster.Target())
	}

	if _, err := New(Backend(99), DefaultOptions()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestPreamble(t *testing.T) {
	got, err := writer.Render(testMeta.Preamble())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "# Generated by topogen test\n# Source: project.yaml\n# Generated at: 2024-01-02T03:04:05Z\n"
	if got != want {
		t.Errorf("Preamble() = %q, want %q", got, want)
	}
}

func TestIsGenerated(t *testing.T) {
	got, err := writer.Render(testMeta.Preamble())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !IsGenerated(got) {
		t.Errorf("IsGenerated(%q) = false, want true", got)
	}
	for _, content := range []string{"", "kind: Service\n", "# Generated by someone else\n"} {
		if IsGenerated(content) {
			t.Errorf("IsGenerated(%q) = true, want false", content)
		}
	}
}
