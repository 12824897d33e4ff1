package generator

import (
	"fmt"

	"github.com/stackgen-cli/topogen/internal/models"
	"github.com/stackgen-cli/topogen/internal/naming"
	w "github.com/stackgen-cli/topogen/internal/writer"
)

// Labels attached to every rendered service.
const (
	LabelProject   = "topogen.project"
	LabelComponent = "topogen.component"
	LabelResource  = "topogen.resource"
	LabelType      = "topogen.type"
	LabelEdge      = "topogen.edge"
	// LabelEndpoint prefixes one label per endpoint, valued with its edge type.
	LabelEndpoint = "topogen.endpoint."
)

// tlsMountDir is where proxy services find their certificate material.
const tlsMountDir = "/etc/topogen/tls"

// ComposeGenerator renders a single compose file with one service per
// component, resource and (optionally) sub-edge.
type ComposeGenerator struct {
	opts Options
}

func (g *ComposeGenerator) Backend() Backend   { return Compose }
func (g *ComposeGenerator) Target() TargetKind { return TargetFile }

// Check verifies that every rendered resource has an image and that no two
// entities share a service name.
func (g *ComposeGenerator) Check(p *models.Project) error {
	var errs models.ValidationErrors

	if len(p.Components) == 0 && len(p.Resources) == 0 {
		errs = append(errs, models.NewValidationError(models.ErrPrecondition, "",
			"project %q declares no components or resources", p.ID))
	}

	for _, r := range p.SortedResources() {
		if _, mapped := p.Mapping(r.ID); mapped {
			continue
		}
		if !r.HasImage() {
			errs = append(errs, models.NewValidationError(models.ErrPrecondition, "resources."+r.ID+".image",
				"resource %q has no image reference", r.ID))
		}
	}

	reg := naming.NewRegistry()
	for _, c := range p.SortedComponents() {
		reg.Claim(naming.ServiceName(c.ID), naming.Owner{Kind: "component", ID: c.ID})
	}
	for _, r := range p.SortedResources() {
		reg.Claim(naming.ServiceName(r.ID), naming.Owner{Kind: "resource", ID: r.ID})
	}
	if g.opts.IncludeEdges {
		for _, def := range p.Topology.SubEdges() {
			reg.Claim(naming.SubEdgeName(def), naming.Owner{Kind: "sub-edge", ID: def.ID()})
		}
	}
	errs = append(errs, collisionErrors(reg)...)

	return errs.Err()
}

// Generate renders the compose file. Nothing is rendered unless Check passes.
func (g *ComposeGenerator) Generate(p *models.Project, meta Meta) (*Output, error) {
	if err := g.Check(p); err != nil {
		return nil, err
	}

	content, err := w.Render(g.document(p, meta), g.opts.writerOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to render compose file: %w", err)
	}
	return &Output{Files: []File{{Content: content}}}, nil
}

func (g *ComposeGenerator) document(p *models.Project, meta Meta) w.Step {
	return w.Seq(
		meta.Preamble(),
		w.Linef("version: %s", w.Scalar(g.opts.ComposeVersion)),
		w.Block("services",
			w.Each(p.SortedComponents(), func(c models.Component) w.Step {
				return g.component(p, c)
			}),
			w.Each(p.SortedResources(), func(r models.Resource) w.Step {
				if m, ok := p.Mapping(r.ID); ok {
					return g.mapped(p, m)
				}
				return g.resource(p, r)
			}),
			w.When(g.opts.IncludeEdges, w.Each(p.Topology.SubEdges(), func(def models.SubEdgeDef) w.Step {
				return g.proxy(p, def)
			})),
		),
	)
}

func (g *ComposeGenerator) component(p *models.Project, c models.Component) w.Step {
	return w.Block(w.Scalar(naming.ServiceName(c.ID)),
		w.Linef("image: %s", w.Scalar(naming.ImageName(p.ID, c.ID))),
		w.Linef("build: %s", w.Scalar(c.Path)),
		w.Linef("restart: %s", w.Scalar(g.opts.Restart)),
		w.Items("labels", endpointLabels([]string{
			naming.EnvEntry(LabelProject, p.ID),
			naming.EnvEntry(LabelComponent, c.ID),
		}, p, c.ID), nil),
		w.Items("environment", naming.EnvEntries(c.Environment), nil),
		w.Items("ports", servicePorts(p, c.ID, c.ExposedPorts), w.Quote),
		w.Items("volumes", endpointVolumes(p, c.ID), nil),
	)
}

func (g *ComposeGenerator) resource(p *models.Project, r models.Resource) w.Step {
	return w.Block(w.Scalar(naming.ServiceName(r.ID)),
		w.Linef("image: %s", w.Scalar(r.Image)),
		w.Linef("restart: %s", w.Scalar(g.opts.Restart)),
		w.Items("labels", endpointLabels([]string{
			naming.EnvEntry(LabelProject, p.ID),
			naming.EnvEntry(LabelResource, r.ID),
			naming.EnvEntry(LabelType, r.Type),
		}, p, r.ID), nil),
		w.Items("environment", naming.EnvEntries(r.Environment), nil),
		w.Items("ports", servicePorts(p, r.ID, r.ExposedPorts), w.Quote),
		w.Items("volumes", endpointVolumes(p, r.ID), nil),
	)
}

// mapped renders a resource replaced by a locally built override.
func (g *ComposeGenerator) mapped(p *models.Project, m models.MappedResource) w.Step {
	image := m.Override.Tag
	if image == "" {
		image = naming.ImageName(p.ID, m.ID)
	}

	links := make([]string, len(m.Override.Links))
	for i, link := range m.Override.Links {
		links[i] = naming.ServiceName(link)
	}

	return w.Block(w.Scalar(naming.ServiceName(m.ID)),
		w.Linef("image: %s", w.Scalar(image)),
		w.Linef("build: %s", w.Scalar(m.Override.Path)),
		w.Linef("restart: %s", w.Scalar(g.opts.Restart)),
		w.Items("labels", endpointLabels([]string{
			naming.EnvEntry(LabelProject, p.ID),
			naming.EnvEntry(LabelResource, m.ID),
			naming.EnvEntry(LabelType, m.Type),
		}, p, m.ID), nil),
		w.Items("links", links, nil),
		w.Items("environment", naming.EnvEntries(m.Environment), nil),
		w.Items("ports", servicePorts(p, m.ID, m.ExposedPorts), w.Quote),
		w.Items("volumes", endpointVolumes(p, m.ID), nil),
	)
}

// proxy renders the reverse-proxy front of a sub-edge.
func (g *ComposeGenerator) proxy(p *models.Project, def models.SubEdgeDef) w.Step {
	sub := def.SubEdge
	upstream := naming.ServiceName(sub.Target)

	var volumes []string
	if sub.TLS != nil {
		volumes = []string{
			sub.TLS.Certificate + ":" + tlsMountDir + "/tls.crt:ro",
			sub.TLS.Key + ":" + tlsMountDir + "/tls.key:ro",
		}
	}

	return w.Block(w.Scalar(naming.SubEdgeName(def)),
		w.Linef("image: %s", w.Scalar(g.opts.ProxyImage)),
		w.Linef("restart: %s", w.Scalar(g.opts.Restart)),
		w.Items("depends_on", []string{upstream}, nil),
		w.Items("labels", []string{
			naming.EnvEntry(LabelProject, p.ID),
			naming.EnvEntry(LabelEdge, def.ID()),
		}, nil),
		w.Items("environment", []string{
			naming.EnvEntry("UPSTREAM", upstream),
			naming.EnvEntry("EDGE_TYPE", sub.Type.String()),
		}, nil),
		w.Items("ports", []string{naming.PortDefinition(sub.Type)}, w.Quote),
		w.Items("volumes", volumes, nil),
	)
}

// servicePorts returns the declared ports of target followed by the port
// mappings of the endpoints exposing it.
func servicePorts(p *models.Project, target string, declared []string) []string {
	endpoints := p.EndpointsFor(target)
	if len(endpoints) == 0 {
		return declared
	}
	ports := make([]string, 0, len(declared)+len(endpoints))
	ports = append(ports, declared...)
	for _, ep := range endpoints {
		ports = append(ports, ep.Port.String())
	}
	return ports
}

// endpointLabels appends the type of every endpoint exposing target.
func endpointLabels(labels []string, p *models.Project, target string) []string {
	for _, ep := range p.EndpointsFor(target) {
		labels = append(labels, naming.EnvEntry(LabelEndpoint+ep.Name, ep.Type.String()))
	}
	return labels
}

// endpointVolumes mounts the certificate material of the endpoints exposing
// target, one pair of files per endpoint named after it.
func endpointVolumes(p *models.Project, target string) []string {
	var volumes []string
	for _, ep := range p.EndpointsFor(target) {
		if ep.TLS == nil {
			continue
		}
		volumes = append(volumes,
			ep.TLS.Certificate+":"+tlsMountDir+"/"+ep.Name+".crt:ro",
			ep.TLS.Key+":"+tlsMountDir+"/"+ep.Name+".key:ro",
		)
	}
	return volumes
}
