// Package naming derives backend-safe identifiers and formats the small
// tokens (ports, environment entries) every backend emits. All functions are
// pure and never fail; degenerate input yields a degenerate but well-formed token.
package naming

import (
	"strings"

	"github.com/stackgen-cli/topogen/internal/models"
)

var (
	serviceReplacer = strings.NewReplacer("/", "", " ", "", "-", "", "_", "")
	imageReplacer   = strings.NewReplacer(" ", "_", "-", "_")
)

// ServiceName derives a service identifier from a component, resource or
// sub-edge id by dropping '/', ' ', '-' and '_' and lower-casing the rest.
//
// Example:
//
//	ServiceName("My-App")  // returns "myapp"
func ServiceName(id string) string {
	return strings.ToLower(serviceReplacer.Replace(id))
}

// ImageName derives the generated image reference for a project member.
// Pattern: {projectID}/{id} with ' ' and '-' replaced by '_'.
//
// Example:
//
//	ImageName("demo", "web-app")  // returns "demo/web_app"
func ImageName(projectID, id string) string {
	return strings.ToLower(imageReplacer.Replace(projectID + "/" + id))
}

// SubEdgeName derives the service identifier of a sub-edge front.
func SubEdgeName(def models.SubEdgeDef) string {
	return ServiceName(def.ID())
}

// PortDefinition returns the fixed host:container port pair of an edge type.
func PortDefinition(t models.EdgeType) string {
	switch t {
	case models.EdgeHTTP:
		return "80:80"
	case models.EdgeHTTPS:
		return "443:443"
	}
	// validation rejects any other value before rendering
	panic("naming: unhandled edge type " + t.String())
}

// EdgePort returns the well-known port of an edge type.
func EdgePort(t models.EdgeType) int {
	switch t {
	case models.EdgeHTTP:
		return 80
	case models.EdgeHTTPS:
		return 443
	}
	panic("naming: unhandled edge type " + t.String())
}

// EnvEntry renders one environment entry as NAME=VALUE.
func EnvEntry(name, value string) string {
	return name + "=" + value
}

// EnvEntries renders env in its own order. Callers wanting a specific order sort first.
func EnvEntries(env models.Environment) []string {
	entries := make([]string, 0, len(env))
	for _, v := range env {
		entries = append(entries, EnvEntry(v.Name, v.Value))
	}
	return entries
}
