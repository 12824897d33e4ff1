package naming

import (
	"fmt"
	"sort"
)

// Owner identifies the model entity a generated name belongs to.
type Owner struct {
	Kind string // component, resource, sub-edge
	ID   string
}

func (o Owner) String() string {
	return fmt.Sprintf("%s %q", o.Kind, o.ID)
}

// Collision records two or more owners whose ids normalize to one name.
type Collision struct {
	Name   string
	Owners []Owner
}

func (c Collision) Error() string {
	return fmt.Sprintf("%s and %s both normalize to %q", c.Owners[0], c.Owners[1], c.Name)
}

// Registry hands out generated names and remembers who claimed them.
// Lossy normalization can map different ids to one name; the registry
// reports that instead of letting one entry overwrite another.
type Registry struct {
	owners map[string][]Owner
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[string][]Owner)}
}

// Claim records that owner uses name.
func (r *Registry) Claim(name string, owner Owner) {
	if _, ok := r.owners[name]; !ok {
		r.order = append(r.order, name)
	}
	r.owners[name] = append(r.owners[name], owner)
}

// Owner returns the first owner of name.
func (r *Registry) Owner(name string) (Owner, bool) {
	owners := r.owners[name]
	if len(owners) == 0 {
		return Owner{}, false
	}
	return owners[0], true
}

// Collisions lists every name claimed more than once, ordered by name.
func (r *Registry) Collisions() []Collision {
	var result []Collision
	for _, name := range r.order {
		if owners := r.owners[name]; len(owners) > 1 {
			result = append(result, Collision{Name: name, Owners: owners})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
