package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stackgen-cli/topogen/internal/models"
	"gopkg.in/yaml.v3"
)

// Read builds a Project from a loaded configuration tree. On failure the
// error is a models.ValidationErrors listing every problem found and the
// Project is nil.
func Read(node *yaml.Node) (*models.Project, error) {
	if node != nil && node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	r := &reader{}
	p := r.project(node)
	if err := r.errs.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadMap builds a Project from an already decoded map.
func ReadMap(data map[string]any) (*models.Project, error) {
	// Marshal back to YAML and re-read through the node path
	yamlBytes, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(yamlBytes, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return Read(&doc)
}

// ReadFile loads the document at path and builds its Project.
func ReadFile(ctx context.Context, path string, env Env) (*models.Project, error) {
	node, err := LoadFile(ctx, path, env)
	if err != nil {
		return nil, err
	}
	p, err := Read(node)
	if err != nil {
		return nil, err
	}
	p.Source = path
	return p, nil
}

// reader accumulates problems while walking the tree.
type reader struct {
	errs models.ValidationErrors
}

func (r *reader) fail(kind error, field string, node *yaml.Node, format string, args ...any) {
	e := models.NewValidationError(kind, field, format, args...)
	if node != nil {
		e.Line = node.Line
	}
	r.errs = append(r.errs, e)
}

func (r *reader) project(root *yaml.Node) *models.Project {
	if root == nil || root.Kind != yaml.MappingNode {
		r.fail(models.ErrInvalidInput, "", root, "top-level document must be a mapping")
		return nil
	}

	p := &models.Project{Topology: models.Topology{}}
	fields := fieldsOf(root)

	p.ID = r.requiredString(fields, "id", "id", root)
	p.Components = r.components(fields["components"].value)
	p.Resources = r.resources(fields["resources"].value)
	p.Topology = r.topology(fields["topology"].value)
	p.Endpoints = r.endpoints(fields["endpoints"].value)
	p.Mappings = r.mappings(fields["mappings"].value, p)

	r.checkReferences(p, fields)
	return p
}

// field is a key/value pair of a mapping node.
type field struct {
	key   *yaml.Node
	value *yaml.Node
}

// fieldsOf indexes the last occurrence of every key of a mapping node.
func fieldsOf(node *yaml.Node) map[string]field {
	fields := make(map[string]field)
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = field{key: node.Content[i], value: node.Content[i+1]}
	}
	return fields
}

// entries walks a mapping of id -> body, reporting duplicate and empty ids.
func (r *reader) entries(node *yaml.Node, path, what string, fn func(id string, key, body *yaml.Node)) {
	if node == nil || isNull(node) {
		return
	}
	if node.Kind != yaml.MappingNode {
		r.fail(models.ErrInvalidInput, path, node, "must be a mapping of %s ids", what)
		return
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, body := node.Content[i], node.Content[i+1]
		id := key.Value
		switch {
		case id == "":
			r.fail(models.ErrInvalidInput, path, key, "%s id must not be empty", what)
			continue
		case seen[id]:
			r.fail(models.ErrInvalidInput, path+"."+id, key, "duplicate %s id %q", what, id)
			continue
		}
		seen[id] = true
		fn(id, key, body)
	}
}

func (r *reader) components(node *yaml.Node) []models.Component {
	var result []models.Component
	r.entries(node, "components", "component", func(id string, key, body *yaml.Node) {
		path := "components." + id
		fields, ok := r.body(body, path)
		if !ok {
			return
		}
		result = append(result, models.Component{
			ID:           id,
			Path:         r.requiredString(fields, "path", path+".path", body),
			Environment:  r.environment(fields["environment"].value, path+".environment"),
			ExposedPorts: r.stringList(fields["ports"].value, path+".ports"),
		})
	})
	return result
}

func (r *reader) resources(node *yaml.Node) []models.Resource {
	var result []models.Resource
	r.entries(node, "resources", "resource", func(id string, key, body *yaml.Node) {
		path := "resources." + id
		fields, ok := r.body(body, path)
		if !ok {
			return
		}
		result = append(result, models.Resource{
			ID:           id,
			Type:         r.requiredString(fields, "type", path+".type", body),
			Image:        r.optionalString(fields, "image", path+".image"),
			Environment:  r.environment(fields["environment"].value, path+".environment"),
			ExposedPorts: r.stringList(fields["ports"].value, path+".ports"),
		})
	})
	return result
}

func (r *reader) topology(node *yaml.Node) models.Topology {
	topo := models.Topology{}
	r.entries(node, "topology", "edge", func(edgeID string, key, body *yaml.Node) {
		edge := models.Edge{}
		r.entries(body, "topology."+edgeID, "sub-edge", func(subID string, key, sub *yaml.Node) {
			path := "topology." + edgeID + "." + subID
			fields, ok := r.body(sub, path)
			if !ok {
				return
			}
			edge[subID] = models.SubEdge{
				Target: r.requiredString(fields, "target", path+".target", sub),
				Type:   r.edgeType(fields, path, sub),
				TLS:    r.tls(fields["tls"].value, path+".tls"),
			}
		})
		topo[edgeID] = edge
	})
	return topo
}

func (r *reader) endpoints(node *yaml.Node) []models.Endpoint {
	var result []models.Endpoint
	r.entries(node, "endpoints", "endpoint", func(name string, key, body *yaml.Node) {
		path := "endpoints." + name
		fields, ok := r.body(body, path)
		if !ok {
			return
		}
		result = append(result, models.Endpoint{
			Name:   name,
			Target: r.requiredString(fields, "target", path+".target", body),
			Port:   r.portMapping(fields, path+".port", body),
			Type:   r.edgeType(fields, path, body),
			TLS:    r.tls(fields["tls"].value, path+".tls"),
		})
	})
	return result
}

// mappings reads developer overrides; keys must name a declared resource.
func (r *reader) mappings(node *yaml.Node, p *models.Project) []models.MappedResource {
	var result []models.MappedResource
	r.entries(node, "mappings", "mapping", func(id string, key, body *yaml.Node) {
		path := "mappings." + id
		fields, ok := r.body(body, path)
		if !ok {
			return
		}
		override := models.Override{
			Path:  r.requiredString(fields, "path", path+".path", body),
			Tag:   r.optionalString(fields, "tag", path+".tag"),
			Links: r.stringList(fields["links"].value, path+".links"),
		}

		var original *models.Resource
		for i := range p.Resources {
			if p.Resources[i].ID == id {
				original = &p.Resources[i]
				break
			}
		}
		if original == nil {
			r.fail(models.ErrUnresolvedReference, path, key, "mapping refers to unknown resource %q", id)
			return
		}
		result = append(result, models.NewMappedResource(original, override))
	})
	return result
}

// checkReferences verifies that every target and link names a component or resource.
func (r *reader) checkReferences(p *models.Project, fields map[string]field) {
	topoNode := fields["topology"].value
	for _, def := range p.Topology.SubEdges() {
		if def.SubEdge.Target == "" || p.HasTarget(def.SubEdge.Target) {
			continue
		}
		r.fail(models.ErrUnresolvedReference, "topology."+def.EdgeID+"."+def.SubEdgeID+".target",
			lookup(topoNode, def.EdgeID, def.SubEdgeID, "target"),
			"unknown target %q", def.SubEdge.Target)
	}

	epNode := fields["endpoints"].value
	for _, ep := range p.Endpoints {
		if ep.Target == "" || p.HasTarget(ep.Target) {
			continue
		}
		r.fail(models.ErrUnresolvedReference, "endpoints."+ep.Name+".target",
			lookup(epNode, ep.Name, "target"), "unknown target %q", ep.Target)
	}

	mapNode := fields["mappings"].value
	for _, m := range p.Mappings {
		for i, link := range m.Override.Links {
			if p.HasTarget(link) {
				continue
			}
			r.fail(models.ErrUnresolvedReference, fmt.Sprintf("mappings.%s.links[%d]", m.ID, i),
				lookup(mapNode, m.ID, "links"), "unknown link %q", link)
		}
	}
}

// body checks that an entity body is a mapping and indexes it.
func (r *reader) body(node *yaml.Node, path string) (map[string]field, bool) {
	if node == nil || isNull(node) {
		return map[string]field{}, true
	}
	if node.Kind != yaml.MappingNode {
		r.fail(models.ErrInvalidInput, path, node, "must be a mapping")
		return nil, false
	}
	return fieldsOf(node), true
}

func (r *reader) requiredString(fields map[string]field, name, path string, parent *yaml.Node) string {
	f, ok := fields[name]
	if !ok || isNull(f.value) {
		r.fail(models.ErrInvalidInput, path, parent, "required field is missing")
		return ""
	}
	if f.value.Kind != yaml.ScalarNode {
		r.fail(models.ErrInvalidInput, path, f.value, "must be a string")
		return ""
	}
	if strings.TrimSpace(f.value.Value) == "" {
		r.fail(models.ErrInvalidInput, path, f.value, "must not be empty")
		return ""
	}
	return f.value.Value
}

func (r *reader) optionalString(fields map[string]field, name, path string) string {
	f, ok := fields[name]
	if !ok || isNull(f.value) {
		return ""
	}
	if f.value.Kind != yaml.ScalarNode {
		r.fail(models.ErrInvalidInput, path, f.value, "must be a string")
		return ""
	}
	return f.value.Value
}

// stringList reads a sequence of scalars; values are kept verbatim.
func (r *reader) stringList(node *yaml.Node, path string) []string {
	if node == nil || isNull(node) {
		return nil
	}
	if node.Kind != yaml.SequenceNode {
		r.fail(models.ErrInvalidInput, path, node, "must be a list")
		return nil
	}
	result := make([]string, 0, len(node.Content))
	for i, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			r.fail(models.ErrInvalidInput, fmt.Sprintf("%s[%d]", path, i), item, "must be a string")
			continue
		}
		result = append(result, item.Value)
	}
	return result
}

// environment parses environment variables (list or map form)
func (r *reader) environment(node *yaml.Node, path string) models.Environment {
	if node == nil || isNull(node) {
		return nil
	}

	var env models.Environment
	seen := make(map[string]bool)
	add := func(name, value string, at *yaml.Node) {
		switch {
		case name == "":
			r.fail(models.ErrInvalidInput, path, at, "variable name must not be empty")
		case seen[name]:
			r.fail(models.ErrInvalidInput, path+"."+name, at, "duplicate variable %q", name)
		default:
			seen[name] = true
			env = append(env, models.EnvVar{Name: name, Value: value})
		}
	}

	switch node.Kind {
	case yaml.SequenceNode:
		// List form: - KEY=VALUE or - KEY
		for i, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				r.fail(models.ErrInvalidInput, fmt.Sprintf("%s[%d]", path, i), item, "must be a KEY=VALUE string")
				continue
			}
			name, value := parseEnvVar(item.Value)
			add(name, value, item)
		}
	case yaml.MappingNode:
		// Map form: KEY: VALUE
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				r.fail(models.ErrInvalidInput, path+"."+key.Value, value, "must be a scalar value")
				continue
			}
			v := value.Value
			if isNull(value) {
				v = ""
			}
			add(key.Value, v, key)
		}
	default:
		r.fail(models.ErrInvalidInput, path, node, "must be a mapping or a list of KEY=VALUE strings")
	}
	return env
}

// parseEnvVar splits KEY=VALUE or returns KEY with empty value
func parseEnvVar(s string) (string, string) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func (r *reader) edgeType(fields map[string]field, path string, parent *yaml.Node) models.EdgeType {
	raw := r.requiredString(fields, "type", path+".type", parent)
	if raw == "" {
		return 0
	}
	t, err := models.ParseEdgeType(raw)
	if err != nil {
		r.fail(models.ErrInvalidInput, path+".type", fields["type"].value, "%v", err)
		return 0
	}
	return t
}

// portMapping parses an "external:internal" pair of port numbers.
func (r *reader) portMapping(fields map[string]field, path string, parent *yaml.Node) models.PortMapping {
	raw := r.requiredString(fields, "port", path, parent)
	if raw == "" {
		return models.PortMapping{}
	}
	at := fields["port"].value

	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		r.fail(models.ErrInvalidInput, path, at, "port %q must have the form external:internal", raw)
		return models.PortMapping{}
	}
	external, errExt := parsePort(parts[0])
	internal, errInt := parsePort(parts[1])
	if errExt != nil || errInt != nil {
		r.fail(models.ErrInvalidInput, path, at, "port %q must use numbers between 1 and 65535", raw)
		return models.PortMapping{}
	}
	return models.PortMapping{External: external, Internal: internal}
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("port %d out of range", n)
	}
	return n, nil
}

func (r *reader) tls(node *yaml.Node, path string) *models.TLSConfig {
	if node == nil || isNull(node) {
		return nil
	}
	fields, ok := r.body(node, path)
	if !ok {
		return nil
	}
	return &models.TLSConfig{
		Certificate: r.requiredString(fields, "certificate", path+".certificate", node),
		Key:         r.requiredString(fields, "key", path+".key", node),
	}
}

// lookup follows mapping keys below node, returning nil when a key is absent.
func lookup(node *yaml.Node, keys ...string) *yaml.Node {
	for _, key := range keys {
		if node == nil || node.Kind != yaml.MappingNode {
			return nil
		}
		f, ok := fieldsOf(node)[key]
		if !ok {
			return nil
		}
		node = f.value
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}
