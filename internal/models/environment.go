package models

import "sort"

// EnvVar is a single environment entry.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Environment is an ordered set of environment entries with unique names.
// Order is the declaration order of the source document.
type Environment []EnvVar

// Get returns the value for name.
func (e Environment) Get(name string) (string, bool) {
	for _, v := range e {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Names returns the entry names in order.
func (e Environment) Names() []string {
	names := make([]string, len(e))
	for i, v := range e {
		names[i] = v.Name
	}
	return names
}

// Sorted returns a copy ordered by name.
func (e Environment) Sorted() Environment {
	result := make(Environment, len(e))
	copy(result, e)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Map returns the entries as a map.
func (e Environment) Map() map[string]string {
	m := make(map[string]string, len(e))
	for _, v := range e {
		m[v.Name] = v.Value
	}
	return m
}
