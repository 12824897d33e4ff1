package models

import "sort"

// Project is the root of a topology description. It is built once by the
// reader and treated as read-only by everything downstream.
type Project struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"`

	// Declaration order is kept for traceability; generators use the sorted accessors.
	Components []Component      `json:"components,omitempty"`
	Resources  []Resource       `json:"resources,omitempty"`
	Mappings   []MappedResource `json:"mappings,omitempty"`
	Topology   Topology         `json:"topology,omitempty"`
	Endpoints  []Endpoint       `json:"endpoints,omitempty"`
}

// Component is a buildable unit of the project rendered as a deployable service.
type Component struct {
	ID           string      `json:"id"`
	Path         string      `json:"path"`
	Environment  Environment `json:"environment,omitempty"`
	ExposedPorts []string    `json:"ports,omitempty"`
}

// Resource is an external service dependency that the project does not build.
type Resource struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	Image        string      `json:"image,omitempty"`
	Environment  Environment `json:"environment,omitempty"`
	ExposedPorts []string    `json:"ports,omitempty"`
}

// HasImage reports whether the resource carries an image reference.
func (r Resource) HasImage() bool {
	return r.Image != ""
}

// Override is the developer-supplied replacement bundle for a resource.
type Override struct {
	Path  string   `json:"path"`
	Tag   string   `json:"tag,omitempty"`
	Links []string `json:"links,omitempty"`
}

// MappedResource replaces a Resource with a locally built stand-in.
// Original points at the replaced resource and is informational only.
type MappedResource struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	Environment  Environment `json:"environment,omitempty"`
	ExposedPorts []string    `json:"ports,omitempty"`
	Override     Override    `json:"override"`
	Original     *Resource   `json:"-"`
}

// NewMappedResource derives a mapped resource from the resource it replaces.
func NewMappedResource(original *Resource, override Override) MappedResource {
	return MappedResource{
		ID:           original.ID,
		Type:         original.Type,
		Environment:  original.Environment,
		ExposedPorts: original.ExposedPorts,
		Override:     override,
		Original:     original,
	}
}

// TargetKind tells what an edge or endpoint target refers to.
type TargetKind string

const (
	TargetNone      TargetKind = ""
	TargetComponent TargetKind = "component"
	TargetResource  TargetKind = "resource"
)

// SortedComponents returns the components ordered by id.
func (p *Project) SortedComponents() []Component {
	result := make([]Component, len(p.Components))
	copy(result, p.Components)
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// SortedResources returns the resources ordered by id.
func (p *Project) SortedResources() []Resource {
	result := make([]Resource, len(p.Resources))
	copy(result, p.Resources)
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// SortedMappings returns the mapped resources ordered by id.
func (p *Project) SortedMappings() []MappedResource {
	result := make([]MappedResource, len(p.Mappings))
	copy(result, p.Mappings)
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// SortedEndpoints returns the endpoints ordered by name.
func (p *Project) SortedEndpoints() []Endpoint {
	result := make([]Endpoint, len(p.Endpoints))
	copy(result, p.Endpoints)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Component looks up a component by id.
func (p *Project) Component(id string) (Component, bool) {
	for _, c := range p.Components {
		if c.ID == id {
			return c, true
		}
	}
	return Component{}, false
}

// Resource looks up a resource by id.
func (p *Project) Resource(id string) (Resource, bool) {
	for _, r := range p.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// Mapping returns the developer mapping for a resource, if any.
func (p *Project) Mapping(resourceID string) (MappedResource, bool) {
	for _, m := range p.Mappings {
		if m.ID == resourceID {
			return m, true
		}
	}
	return MappedResource{}, false
}

// TargetKind resolves an id against components first, then resources.
func (p *Project) TargetKind(id string) TargetKind {
	if _, ok := p.Component(id); ok {
		return TargetComponent
	}
	if _, ok := p.Resource(id); ok {
		return TargetResource
	}
	return TargetNone
}

// HasTarget reports whether id names a component or a resource.
func (p *Project) HasTarget(id string) bool {
	return p.TargetKind(id) != TargetNone
}

// EndpointsFor returns the endpoints targeting id, ordered by name.
func (p *Project) EndpointsFor(target string) []Endpoint {
	var result []Endpoint
	for _, e := range p.SortedEndpoints() {
		if e.Target == target {
			result = append(result, e)
		}
	}
	return result
}

// SubEdgesFor returns the sub-edges targeting id in topology order.
func (p *Project) SubEdgesFor(target string) []SubEdgeDef {
	var result []SubEdgeDef
	for _, def := range p.Topology.SubEdges() {
		if def.SubEdge.Target == target {
			result = append(result, def)
		}
	}
	return result
}
