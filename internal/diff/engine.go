package diff

import (
	"fmt"
	"sort"

	"github.com/stackgen-cli/topogen/internal/models"
)

// Compare compares two projects and produces a DiffReport
func Compare(old, new *models.Project) *models.DiffReport {
	report := models.NewDiffReport()

	// Compare components
	compareComponents(old, new, report)

	// Compare resources, including their developer mappings
	compareResources(old, new, report)

	// Compare topology sub-edges
	compareEdges(old.Topology, new.Topology, report)

	// Compare endpoints
	compareEndpoints(old, new, report)

	return report
}

// compareComponents compares component sets
func compareComponents(old, new *models.Project, report *models.DiffReport) {
	oldByID := componentMap(old.Components)
	newByID := componentMap(new.Components)

	added, removed, common := diffSets(mapKeys(oldByID), mapKeys(newByID))

	report.Summary.ComponentsAdded = len(added)
	report.Summary.ComponentsRemoved = len(removed)

	for _, id := range added {
		report.AddChange(models.Change{
			Kind:     models.ChangeAdded,
			Scope:    models.ScopeComponent,
			Name:     id,
			Path:     "components." + id,
			After:    newByID[id],
			Severity: models.SeverityInfo,
		})
	}

	// Removed components (breaking!)
	for _, id := range removed {
		report.AddChange(models.Change{
			Kind:     models.ChangeRemoved,
			Scope:    models.ScopeComponent,
			Name:     id,
			Path:     "components." + id,
			Before:   oldByID[id],
			Severity: models.SeverityBreaking,
		})
	}

	changed := 0
	for _, id := range common {
		o, n := oldByID[id], newByID[id]
		base := "components." + id

		var changes []models.Change
		if o.Path != n.Path {
			changes = append(changes, models.Change{
				Kind:     models.ChangeModified,
				Scope:    models.ScopeComponent,
				Name:     id,
				Path:     base + ".path",
				Before:   o.Path,
				After:    n.Path,
				Severity: models.SeverityWarning,
			})
		}
		changes = append(changes, compareEnv(models.ScopeComponent, id, base, o.Environment, n.Environment)...)
		changes = append(changes, comparePorts(models.ScopeComponent, id, base, o.ExposedPorts, n.ExposedPorts)...)

		if len(changes) > 0 {
			changed++
			for _, c := range changes {
				report.AddChange(c)
			}
		}
	}
	report.Summary.ComponentsChanged = changed
}

// compareResources compares resource sets
func compareResources(old, new *models.Project, report *models.DiffReport) {
	oldByID := resourceMap(old.Resources)
	newByID := resourceMap(new.Resources)

	added, removed, common := diffSets(mapKeys(oldByID), mapKeys(newByID))

	report.Summary.ResourcesAdded = len(added)
	report.Summary.ResourcesRemoved = len(removed)

	for _, id := range added {
		report.AddChange(models.Change{
			Kind:     models.ChangeAdded,
			Scope:    models.ScopeResource,
			Name:     id,
			Path:     "resources." + id,
			After:    newByID[id],
			Severity: models.SeverityInfo,
		})
	}

	// Removed resources (breaking!)
	for _, id := range removed {
		report.AddChange(models.Change{
			Kind:     models.ChangeRemoved,
			Scope:    models.ScopeResource,
			Name:     id,
			Path:     "resources." + id,
			Before:   oldByID[id],
			Severity: models.SeverityBreaking,
		})
	}

	changed := 0
	for _, id := range common {
		o, n := oldByID[id], newByID[id]
		base := "resources." + id

		var changes []models.Change
		// A different kind of backing service is never a drop-in replacement
		if o.Type != n.Type {
			changes = append(changes, models.Change{
				Kind:     models.ChangeModified,
				Scope:    models.ScopeResource,
				Name:     id,
				Path:     base + ".type",
				Before:   o.Type,
				After:    n.Type,
				Severity: models.SeverityBreaking,
			})
		}
		if o.Image != n.Image {
			changes = append(changes, models.Change{
				Kind:     changeKindForStrings(o.Image, n.Image),
				Scope:    models.ScopeResource,
				Name:     id,
				Path:     base + ".image",
				Before:   stringValue(o.Image),
				After:    stringValue(n.Image),
				Severity: imageSeverity(o.Image, n.Image),
			})
		}
		changes = append(changes, compareEnv(models.ScopeResource, id, base, o.Environment, n.Environment)...)
		changes = append(changes, comparePorts(models.ScopeResource, id, base, o.ExposedPorts, n.ExposedPorts)...)
		changes = append(changes, compareMapping(id, old, new)...)

		if len(changes) > 0 {
			changed++
			for _, c := range changes {
				report.AddChange(c)
			}
		}
	}
	report.Summary.ResourcesChanged = changed
}

// compareMapping compares the developer override of a resource present in both projects
func compareMapping(id string, old, new *models.Project) []models.Change {
	o, hadOld := old.Mapping(id)
	n, hasNew := new.Mapping(id)
	path := "mappings." + id

	switch {
	case !hadOld && !hasNew:
		return nil
	case !hadOld:
		return []models.Change{{
			Kind:     models.ChangeAdded,
			Scope:    models.ScopeResource,
			Name:     id,
			Path:     path,
			After:    n.Override,
			Severity: models.SeverityInfo,
		}}
	case !hasNew:
		return []models.Change{{
			Kind:     models.ChangeRemoved,
			Scope:    models.ScopeResource,
			Name:     id,
			Path:     path,
			Before:   o.Override,
			Severity: models.SeverityInfo,
		}}
	}

	var changes []models.Change
	if o.Override.Path != n.Override.Path {
		changes = append(changes, models.Change{
			Kind:     models.ChangeModified,
			Scope:    models.ScopeResource,
			Name:     id,
			Path:     path + ".path",
			Before:   o.Override.Path,
			After:    n.Override.Path,
			Severity: models.SeverityInfo,
		})
	}
	if o.Override.Tag != n.Override.Tag {
		changes = append(changes, models.Change{
			Kind:     changeKindForStrings(o.Override.Tag, n.Override.Tag),
			Scope:    models.ScopeResource,
			Name:     id,
			Path:     path + ".tag",
			Before:   stringValue(o.Override.Tag),
			After:    stringValue(n.Override.Tag),
			Severity: buildTagSeverity(mappedImage(old, o), mappedImage(new, n)),
		})
	}
	changes = append(changes, compareStringSlice(models.ScopeResource, id, path+".links", o.Override.Links, n.Override.Links, models.SeverityWarning)...)
	return changes
}

// compareEnv compares environment variables
func compareEnv(scope models.Scope, name, basePath string, old, new models.Environment) []models.Change {
	var changes []models.Change

	oldMap := old.Map()
	newMap := new.Map()

	added, removed, common := diffSets(mapKeys(oldMap), mapKeys(newMap))

	// Added env vars
	for _, key := range added {
		changes = append(changes, models.Change{
			Kind:     models.ChangeAdded,
			Scope:    scope,
			Name:     name,
			Path:     fmt.Sprintf("%s.environment.%s", basePath, key),
			After:    newMap[key],
			Severity: models.SeverityInfo,
		})
	}

	// Removed env vars (breaking!)
	for _, key := range removed {
		changes = append(changes, models.Change{
			Kind:     models.ChangeRemoved,
			Scope:    scope,
			Name:     name,
			Path:     fmt.Sprintf("%s.environment.%s", basePath, key),
			Before:   oldMap[key],
			Severity: models.SeverityBreaking,
		})
	}

	// Modified env vars
	for _, key := range common {
		if oldMap[key] != newMap[key] {
			changes = append(changes, models.Change{
				Kind:     models.ChangeModified,
				Scope:    scope,
				Name:     name,
				Path:     fmt.Sprintf("%s.environment.%s", basePath, key),
				Before:   oldMap[key],
				After:    newMap[key],
				Severity: models.SeverityWarning,
			})
		}
	}

	return changes
}

// comparePorts compares exposed port tokens; removals are breaking
func comparePorts(scope models.Scope, name, basePath string, old, new []string) []models.Change {
	return compareStringSlice(scope, name, basePath+".ports", old, new, models.SeverityBreaking)
}

// compareStringSlice compares string slices and reports changes
func compareStringSlice(scope models.Scope, name, path string, old, new []string, removedSeverity models.Severity) []models.Change {
	var changes []models.Change

	added, removed, _ := diffSets(old, new)

	for _, item := range added {
		changes = append(changes, models.Change{
			Kind:     models.ChangeAdded,
			Scope:    scope,
			Name:     name,
			Path:     fmt.Sprintf("%s.%s", path, item),
			After:    item,
			Severity: models.SeverityInfo,
		})
	}

	for _, item := range removed {
		changes = append(changes, models.Change{
			Kind:     models.ChangeRemoved,
			Scope:    scope,
			Name:     name,
			Path:     fmt.Sprintf("%s.%s", path, item),
			Before:   item,
			Severity: removedSeverity,
		})
	}

	return changes
}

// compareEdges compares sub-edges keyed by "edge/sub-edge"
func compareEdges(old, new models.Topology, report *models.DiffReport) {
	oldDefs := subEdgeMap(old)
	newDefs := subEdgeMap(new)

	added, removed, common := diffSets(mapKeys(oldDefs), mapKeys(newDefs))

	for _, id := range added {
		report.AddChange(models.Change{
			Kind:     models.ChangeAdded,
			Scope:    models.ScopeEdge,
			Name:     id,
			Path:     edgePath(newDefs[id]),
			After:    newDefs[id].SubEdge,
			Severity: models.SeverityInfo,
		})
	}

	// Removed exposure (breaking!)
	for _, id := range removed {
		report.AddChange(models.Change{
			Kind:     models.ChangeRemoved,
			Scope:    models.ScopeEdge,
			Name:     id,
			Path:     edgePath(oldDefs[id]),
			Before:   oldDefs[id].SubEdge,
			Severity: models.SeverityBreaking,
		})
	}

	for _, id := range common {
		o, n := oldDefs[id].SubEdge, newDefs[id].SubEdge
		base := edgePath(newDefs[id])

		if o.Target != n.Target {
			report.AddChange(models.Change{
				Kind:     models.ChangeModified,
				Scope:    models.ScopeEdge,
				Name:     id,
				Path:     base + ".target",
				Before:   o.Target,
				After:    n.Target,
				Severity: models.SeverityWarning,
			})
		}
		// The protocol decides the published port
		if o.Type != n.Type {
			report.AddChange(models.Change{
				Kind:     models.ChangeModified,
				Scope:    models.ScopeEdge,
				Name:     id,
				Path:     base + ".type",
				Before:   o.Type.String(),
				After:    n.Type.String(),
				Severity: models.SeverityBreaking,
			})
		}
		if !tlsEqual(o.TLS, n.TLS) {
			sev := models.SeverityInfo
			if o.TLS != nil && n.TLS == nil {
				sev = models.SeverityBreaking // TLS removed
			}
			report.AddChange(models.Change{
				Kind:     changeKindForTLS(o.TLS, n.TLS),
				Scope:    models.ScopeEdge,
				Name:     id,
				Path:     base + ".tls",
				Before:   tlsValue(o.TLS),
				After:    tlsValue(n.TLS),
				Severity: sev,
			})
		}
	}
}

// compareEndpoints compares endpoints by name
func compareEndpoints(old, new *models.Project, report *models.DiffReport) {
	oldByName := endpointMap(old.Endpoints)
	newByName := endpointMap(new.Endpoints)

	added, removed, common := diffSets(mapKeys(oldByName), mapKeys(newByName))

	for _, name := range added {
		report.AddChange(models.Change{
			Kind:     models.ChangeAdded,
			Scope:    models.ScopeEndpoint,
			Name:     name,
			Path:     "endpoints." + name,
			After:    newByName[name],
			Severity: models.SeverityInfo,
		})
	}

	for _, name := range removed {
		report.AddChange(models.Change{
			Kind:     models.ChangeRemoved,
			Scope:    models.ScopeEndpoint,
			Name:     name,
			Path:     "endpoints." + name,
			Before:   oldByName[name],
			Severity: models.SeverityBreaking,
		})
	}

	for _, name := range common {
		o, n := oldByName[name], newByName[name]
		base := "endpoints." + name

		if o.Target != n.Target {
			report.AddChange(models.Change{
				Kind:     models.ChangeModified,
				Scope:    models.ScopeEndpoint,
				Name:     name,
				Path:     base + ".target",
				Before:   o.Target,
				After:    n.Target,
				Severity: models.SeverityWarning,
			})
		}
		if o.Port != n.Port {
			// Clients only see the external port
			sev := models.SeverityInfo
			if o.Port.External != n.Port.External {
				sev = models.SeverityBreaking
			}
			report.AddChange(models.Change{
				Kind:     models.ChangeModified,
				Scope:    models.ScopeEndpoint,
				Name:     name,
				Path:     base + ".port",
				Before:   o.Port.String(),
				After:    n.Port.String(),
				Severity: sev,
			})
		}
		if o.Type != n.Type {
			report.AddChange(models.Change{
				Kind:     models.ChangeModified,
				Scope:    models.ScopeEndpoint,
				Name:     name,
				Path:     base + ".type",
				Before:   o.Type.String(),
				After:    n.Type.String(),
				Severity: models.SeverityBreaking,
			})
		}
		if !tlsEqual(o.TLS, n.TLS) {
			report.AddChange(models.Change{
				Kind:     changeKindForTLS(o.TLS, n.TLS),
				Scope:    models.ScopeEndpoint,
				Name:     name,
				Path:     base + ".tls",
				Before:   tlsValue(o.TLS),
				After:    tlsValue(n.TLS),
				Severity: models.SeverityWarning,
			})
		}
	}
}

// FilterByName keeps the changes of one component, resource, sub-edge or
// endpoint.
func FilterByName(report *models.DiffReport, name string) *models.DiffReport {
	return keepChanges(report, func(c models.Change) bool { return c.Name == name })
}

// FilterBySeverity keeps the changes rated minSeverity or higher.
func FilterBySeverity(report *models.DiffReport, minSeverity string) *models.DiffReport {
	floor := models.SeverityLevel(models.ParseSeverity(minSeverity))
	return keepChanges(report, func(c models.Change) bool { return models.SeverityLevel(c.Severity) >= floor })
}

// keepChanges copies report with only the changes matching keep. The summary
// still describes the full comparison.
func keepChanges(report *models.DiffReport, keep func(models.Change) bool) *models.DiffReport {
	filtered := models.NewDiffReport()
	filtered.Summary = report.Summary
	for _, c := range report.Changes {
		if keep(c) {
			filtered.Changes = append(filtered.Changes, c)
		}
	}
	return filtered
}

// Helper functions

func mapKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func componentMap(components []models.Component) map[string]models.Component {
	m := make(map[string]models.Component, len(components))
	for _, c := range components {
		m[c.ID] = c
	}
	return m
}

func resourceMap(resources []models.Resource) map[string]models.Resource {
	m := make(map[string]models.Resource, len(resources))
	for _, r := range resources {
		m[r.ID] = r
	}
	return m
}

func endpointMap(endpoints []models.Endpoint) map[string]models.Endpoint {
	m := make(map[string]models.Endpoint, len(endpoints))
	for _, e := range endpoints {
		m[e.Name] = e
	}
	return m
}

func subEdgeMap(t models.Topology) map[string]models.SubEdgeDef {
	m := make(map[string]models.SubEdgeDef)
	for _, def := range t.SubEdges() {
		m[def.ID()] = def
	}
	return m
}

func edgePath(def models.SubEdgeDef) string {
	return fmt.Sprintf("topology.%s.%s", def.EdgeID, def.SubEdgeID)
}

func diffSets(old, new []string) (added, removed, common []string) {
	oldSet := make(map[string]bool)
	newSet := make(map[string]bool)

	for _, s := range old {
		oldSet[s] = true
	}
	for _, s := range new {
		newSet[s] = true
	}

	for s := range newSet {
		if !oldSet[s] {
			added = append(added, s)
		}
	}
	for s := range oldSet {
		if !newSet[s] {
			removed = append(removed, s)
		} else {
			common = append(common, s)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(common)
	return
}

func stringValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func changeKindForStrings(old, new string) models.ChangeKind {
	if old == "" {
		return models.ChangeAdded
	}
	if new == "" {
		return models.ChangeRemoved
	}
	return models.ChangeModified
}

func tlsEqual(a, b *models.TLSConfig) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func tlsValue(t *models.TLSConfig) any {
	if t == nil {
		return nil
	}
	return *t
}

func changeKindForTLS(old, new *models.TLSConfig) models.ChangeKind {
	if old == nil {
		return models.ChangeAdded
	}
	if new == nil {
		return models.ChangeRemoved
	}
	return models.ChangeModified
}
