package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/compose-spec/compose-go/v2/template"
	"github.com/stackgen-cli/topogen/internal/logging"
	"gopkg.in/yaml.v3"
)

// includeKey lists further documents merged underneath the current one.
const includeKey = "include"

// Env resolves variables referenced as ${NAME} in configuration values.
type Env func(name string) (string, bool)

// OSEnv resolves variables from the process environment.
func OSEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapEnv resolves variables from a fixed map.
func MapEnv(m map[string]string) Env {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// LoadFile reads a topology document, expands its includes and substitutes
// environment references. The returned node is a mapping node.
func LoadFile(ctx context.Context, path string, env Env) (*yaml.Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	l := &loader{ctx: ctx, env: env}
	return l.loadFile(abs, nil)
}

// LoadBytes parses an in-memory document. Includes resolve relative to dir.
func LoadBytes(ctx context.Context, data []byte, dir string, env Env) (*yaml.Node, error) {
	l := &loader{ctx: ctx, env: env}
	return l.load(data, "<input>", dir, nil)
}

type loader struct {
	ctx context.Context
	env Env
}

func (l *loader) loadFile(path string, stack []string) (*yaml.Node, error) {
	for _, seen := range stack {
		if seen == path {
			return nil, fmt.Errorf("include cycle: %s", formatCycle(append(stack, path)))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	logging.FromContext(l.ctx).Debug("loading topology document", "path", path, "depth", len(stack))

	return l.load(data, path, filepath.Dir(path), append(stack[:len(stack):len(stack)], path))
}

func (l *loader) load(data []byte, name, dir string, stack []string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", name, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == 0 {
		// empty document
		root = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: top-level document must be a mapping", name)
	}

	root, err := expand(root, name, 0)
	if err != nil {
		return nil, err
	}

	if err := l.substitute(root, name); err != nil {
		return nil, err
	}

	includes, err := takeIncludes(root, name)
	if err != nil {
		return nil, err
	}

	var merged *yaml.Node
	for _, inc := range includes {
		path := inc
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		node, err := l.loadFile(filepath.Clean(path), stack)
		if err != nil {
			return nil, fmt.Errorf("include %q from %s: %w", inc, name, err)
		}
		merged = mergeNodes(merged, node)
	}

	return mergeNodes(merged, root), nil
}

// maxExpandDepth bounds alias expansion so self-referencing anchors fail.
const maxExpandDepth = 64

// expand returns a copy of node with every alias replaced by a copy of its
// anchor and every "<<" merge key folded into its mapping. Explicit keys win
// over merged ones; within a merged list earlier mappings win.
func expand(node *yaml.Node, name string, depth int) (*yaml.Node, error) {
	if depth > maxExpandDepth {
		return nil, fmt.Errorf("%s: line %d: aliases nested too deeply", name, node.Line)
	}

	switch node.Kind {
	case yaml.AliasNode:
		if node.Alias == nil {
			return nil, fmt.Errorf("%s: line %d: unknown alias %q", name, node.Line, node.Value)
		}
		return expand(node.Alias, name, depth+1)

	case yaml.MappingNode:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: node.Tag, Style: node.Style, Line: node.Line, Column: node.Column}
		var merged *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if !isMergeKey(key) {
				k, err := expand(key, name, depth+1)
				if err != nil {
					return nil, err
				}
				v, err := expand(value, name, depth+1)
				if err != nil {
					return nil, err
				}
				out.Content = append(out.Content, k, v)
				continue
			}
			src, err := mergeSources(value, name, depth+1)
			if err != nil {
				return nil, err
			}
			merged = overlay(src, merged)
		}
		if merged == nil {
			return out, nil
		}
		result := &yaml.Node{Kind: yaml.MappingNode, Tag: node.Tag, Style: node.Style, Line: node.Line, Column: node.Column}
		for i := 0; i+1 < len(merged.Content); i += 2 {
			if indexOfKey(out, merged.Content[i].Value) < 0 {
				result.Content = append(result.Content, merged.Content[i], merged.Content[i+1])
			}
		}
		result.Content = append(result.Content, out.Content...)
		return result, nil

	case yaml.SequenceNode, yaml.DocumentNode:
		out := *node
		out.Content = make([]*yaml.Node, len(node.Content))
		for i, item := range node.Content {
			c, err := expand(item, name, depth+1)
			if err != nil {
				return nil, err
			}
			out.Content[i] = c
		}
		return &out, nil
	}

	out := *node
	return &out, nil
}

func isMergeKey(key *yaml.Node) bool {
	return key.Kind == yaml.ScalarNode && key.Value == "<<" && (key.Tag == "!!merge" || key.Tag == "")
}

// mergeSources resolves the value of a merge key into one mapping.
func mergeSources(value *yaml.Node, name string, depth int) (*yaml.Node, error) {
	v, err := expand(value, name, depth)
	if err != nil {
		return nil, err
	}
	switch v.Kind {
	case yaml.MappingNode:
		return v, nil
	case yaml.SequenceNode:
		var result *yaml.Node
		for _, item := range v.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%s: line %d: merge list entries must be mappings", name, item.Line)
			}
			// earlier entries take precedence
			result = overlay(result, item)
		}
		return result, nil
	}
	return nil, fmt.Errorf("%s: line %d: merge value must be a mapping or a list of mappings", name, v.Line)
}

// overlay copies the keys of low that high does not define into high.
// Merge keys are shallow, so values are never combined.
func overlay(high, low *yaml.Node) *yaml.Node {
	if high == nil {
		return low
	}
	if low == nil {
		return high
	}
	result := &yaml.Node{Kind: yaml.MappingNode, Tag: high.Tag, Line: high.Line, Column: high.Column}
	result.Content = append(result.Content, high.Content...)
	for i := 0; i+1 < len(low.Content); i += 2 {
		if indexOfKey(high, low.Content[i].Value) < 0 {
			result.Content = append(result.Content, low.Content[i], low.Content[i+1])
		}
	}
	return result
}

// substitute replaces ${VAR} references in every scalar value below node.
func (l *loader) substitute(node *yaml.Node, name string) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if l.env == nil {
			return nil
		}
		value, err := template.Substitute(node.Value, template.Mapping(l.env))
		if err != nil {
			return fmt.Errorf("%s: line %d: %w", name, node.Line, err)
		}
		node.Value = value
	case yaml.MappingNode:
		// keys are identifiers and stay literal
		for i := 1; i < len(node.Content); i += 2 {
			if err := l.substitute(node.Content[i], name); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if err := l.substitute(item, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// takeIncludes removes the include key from root and returns its paths.
func takeIncludes(root *yaml.Node, name string) ([]string, error) {
	for i := 0; i < len(root.Content); i += 2 {
		if root.Content[i].Value != includeKey {
			continue
		}
		value := root.Content[i+1]
		root.Content = append(root.Content[:i:i], root.Content[i+2:]...)

		switch value.Kind {
		case yaml.ScalarNode:
			if value.Value == "" {
				return nil, nil
			}
			return []string{value.Value}, nil
		case yaml.SequenceNode:
			paths := make([]string, 0, len(value.Content))
			for _, item := range value.Content {
				if item.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("%s: line %d: include entries must be strings", name, item.Line)
				}
				paths = append(paths, item.Value)
			}
			return paths, nil
		default:
			return nil, fmt.Errorf("%s: line %d: include must be a string or a list", name, value.Line)
		}
	}
	return nil, nil
}

// mergeNodes overlays src on dst. Mappings merge key by key, anything else
// is replaced. Keys repeated inside src itself are kept so the reader can
// still report them as duplicates.
func mergeNodes(dst, src *yaml.Node) *yaml.Node {
	if dst == nil {
		return src
	}
	if src == nil {
		return dst
	}
	if dst.Kind != yaml.MappingNode || src.Kind != yaml.MappingNode {
		return src
	}

	result := &yaml.Node{Kind: yaml.MappingNode, Tag: dst.Tag, Line: src.Line, Column: src.Column}
	result.Content = append(result.Content, dst.Content...)

	fromSrc := make(map[string]bool)
	for i := 0; i+1 < len(src.Content); i += 2 {
		key, value := src.Content[i], src.Content[i+1]
		idx := -1
		if !fromSrc[key.Value] {
			idx = indexOfKey(result, key.Value)
		}
		fromSrc[key.Value] = true

		if idx < 0 {
			result.Content = append(result.Content, key, value)
			continue
		}
		result.Content[idx+1] = mergeNodes(result.Content[idx+1], value)
	}
	return result
}

func indexOfKey(mapping *yaml.Node, key string) int {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func formatCycle(stack []string) string {
	names := make([]string, len(stack))
	for i, p := range stack {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, " -> ")
}
