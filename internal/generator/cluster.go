package generator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/stackgen-cli/topogen/internal/models"
	"github.com/stackgen-cli/topogen/internal/naming"
	w "github.com/stackgen-cli/topogen/internal/writer"
)

// Recommended labels shared by every rendered object.
const (
	LabelName      = "app.kubernetes.io/name"
	LabelPartOf    = "app.kubernetes.io/part-of"
	LabelRole      = "app.kubernetes.io/component"
	LabelManagedBy = "app.kubernetes.io/managed-by"

	annotationPrefix = "topogen.io/"
)

// ClusterGenerator renders a directory holding one deployment per component
// and resource, plus a service for every exposed one. Mappings are local
// development overrides and are not rendered here.
type ClusterGenerator struct {
	opts Options
}

func (g *ClusterGenerator) Backend() Backend   { return Cluster }
func (g *ClusterGenerator) Target() TargetKind { return TargetDirectory }

// workload is everything rendered for one component or resource.
type workload struct {
	name        string
	role        string
	image       string
	env         models.Environment
	containers  []containerPort
	ports       []servicePort
	external    bool
	annotations map[string]string
}

type containerPort struct {
	port     int
	protocol string
}

type servicePort struct {
	port     int
	target   int
	protocol string
}

func (sp servicePort) name() string {
	return fmt.Sprintf("%s-%d", strings.ToLower(sp.protocol), sp.port)
}

func (wl *workload) exposed() bool {
	return len(wl.ports) > 0
}

func (wl *workload) addContainerPort(port int, protocol string) {
	for _, cp := range wl.containers {
		if cp.port == port && cp.protocol == protocol {
			return
		}
	}
	wl.containers = append(wl.containers, containerPort{port: port, protocol: protocol})
}

// addServicePort keeps the first declaration of every (port, protocol) pair.
func (wl *workload) addServicePort(sp servicePort) {
	for _, existing := range wl.ports {
		if existing.port == sp.port && existing.protocol == sp.protocol {
			return
		}
	}
	wl.ports = append(wl.ports, sp)
}

// Check verifies images, object names and port tokens.
func (g *ClusterGenerator) Check(p *models.Project) error {
	_, errs := g.plan(p)
	return errs.Err()
}

// Generate renders every manifest into memory.
func (g *ClusterGenerator) Generate(p *models.Project, meta Meta) (*Output, error) {
	workloads, errs := g.plan(p)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	out := &Output{}
	for _, wl := range workloads {
		deployment, err := w.Render(g.deployment(p, wl, meta), g.opts.writerOptions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to render deployment %s: %w", wl.name, err)
		}
		out.Files = append(out.Files, File{Name: wl.name + "-deployment.yaml", Content: deployment})

		if !wl.exposed() {
			continue
		}
		service, err := w.Render(g.service(p, wl, meta), g.opts.writerOptions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to render service %s: %w", wl.name, err)
		}
		out.Files = append(out.Files, File{Name: wl.name + "-service.yaml", Content: service})
	}
	return out, nil
}

// plan resolves every workload and collects all precondition failures.
func (g *ClusterGenerator) plan(p *models.Project) ([]*workload, models.ValidationErrors) {
	var errs models.ValidationErrors
	precondition := func(field, format string, args ...any) {
		errs = append(errs, models.NewValidationError(models.ErrPrecondition, field, format, args...))
	}

	if len(p.Components) == 0 && len(p.Resources) == 0 {
		precondition("", "project %q declares no components or resources", p.ID)
	}
	if err := naming.ValidateLabelValue(p.ID); err != nil {
		precondition("id", "%v", err)
	}
	if g.opts.Namespace != "" {
		if err := naming.ValidateLabel(g.opts.Namespace); err != nil {
			precondition("namespace", "%v", err)
		}
	}

	reg := naming.NewRegistry()
	var workloads []*workload

	add := func(kind, id, image string, env models.Environment, ports []string) {
		name := naming.ServiceName(id)
		reg.Claim(name, naming.Owner{Kind: kind, ID: id})
		if err := naming.ValidateLabel(name); err != nil {
			precondition(kind+"s."+id, "%v", err)
		}

		wl := &workload{name: name, role: kind, image: image, env: env, annotations: map[string]string{}}
		for i, token := range ports {
			if err := wl.addExposed(token); err != nil {
				precondition(fmt.Sprintf("%ss.%s.ports[%d]", kind, id, i), "%v", err)
			}
		}
		g.addExternal(p, id, wl)
		workloads = append(workloads, wl)
	}

	for _, c := range p.SortedComponents() {
		add("component", c.ID, naming.ImageName(p.ID, c.ID), c.Environment, c.ExposedPorts)
	}
	for _, r := range p.SortedResources() {
		if !r.HasImage() {
			precondition("resources."+r.ID+".image", "resource %q has no image reference", r.ID)
		}
		add("resource", r.ID, r.Image, r.Environment, r.ExposedPorts)
	}

	errs = append(errs, collisionErrors(reg)...)
	if len(errs) > 0 {
		return nil, errs
	}
	return workloads, nil
}

// addExposed records the container and service ports of one port token.
func (wl *workload) addExposed(token string) error {
	mappings, err := nat.ParsePortSpec(token)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", token, err)
	}
	for _, m := range mappings {
		target := m.Port.Int()
		protocol := strings.ToUpper(m.Port.Proto())
		wl.addContainerPort(target, protocol)

		port := target
		if m.Binding.HostPort != "" {
			host, err := strconv.Atoi(m.Binding.HostPort)
			if err != nil {
				return fmt.Errorf("invalid host port in %q: %w", token, err)
			}
			port = host
		}
		wl.addServicePort(servicePort{port: port, target: target, protocol: protocol})
	}
	return nil
}

// addExternal adds the externally reachable ports of endpoints and sub-edges
// targeting id.
func (g *ClusterGenerator) addExternal(p *models.Project, id string, wl *workload) {
	for _, ep := range p.EndpointsFor(id) {
		wl.external = true
		wl.addContainerPort(ep.Port.Internal, "TCP")
		wl.addServicePort(servicePort{port: ep.Port.External, target: ep.Port.Internal, protocol: "TCP"})
		if ep.TLS != nil {
			g.annotateTLS(wl, ep.Name, ep.TLS)
		}
	}

	for _, def := range p.SubEdgesFor(id) {
		wl.external = true
		port := naming.EdgePort(def.SubEdge.Type)
		target := port
		if len(wl.containers) > 0 {
			target = wl.containers[0].port
		}
		wl.addServicePort(servicePort{port: port, target: target, protocol: "TCP"})
		if def.SubEdge.TLS != nil {
			g.annotateTLS(wl, naming.SubEdgeName(def), def.SubEdge.TLS)
		}
	}
}

func (g *ClusterGenerator) annotateTLS(wl *workload, name string, tls *models.TLSConfig) {
	wl.annotations[annotationPrefix+name+".tls-certificate"] = tls.Certificate
	wl.annotations[annotationPrefix+name+".tls-key"] = tls.Key
}

func (g *ClusterGenerator) selector(p *models.Project, wl *workload) w.Step {
	return w.Seq(
		w.Linef("%s: %s", LabelName, w.Scalar(wl.name)),
		w.Linef("%s: %s", LabelPartOf, w.Scalar(p.ID)),
	)
}

func (g *ClusterGenerator) metadata(p *models.Project, wl *workload, annotations map[string]string) w.Step {
	return w.Block("metadata",
		w.Linef("name: %s", w.Scalar(wl.name)),
		w.When(g.opts.Namespace != "", w.Linef("namespace: %s", w.Scalar(g.opts.Namespace))),
		w.Block("labels",
			g.selector(p, wl),
			w.Linef("%s: %s", LabelRole, w.Scalar(wl.role)),
			w.Linef("%s: topogen", LabelManagedBy),
		),
		w.When(len(annotations) > 0, w.Block("annotations", sortedPairs(annotations))),
	)
}

func (g *ClusterGenerator) deployment(p *models.Project, wl *workload, meta Meta) w.Step {
	replicas := g.opts.Replicas
	if replicas < 1 {
		replicas = 1
	}

	return w.Seq(
		meta.Preamble(),
		w.Line("apiVersion: apps/v1"),
		w.Line("kind: Deployment"),
		g.metadata(p, wl, nil),
		w.Block("spec",
			w.Linef("replicas: %d", replicas),
			w.Block("selector",
				w.Block("matchLabels", g.selector(p, wl)),
			),
			w.Block("template",
				w.Block("metadata",
					w.Block("labels", g.selector(p, wl)),
				),
				w.Block("spec",
					w.Block("containers", w.Item(
						w.Linef("name: %s", w.Scalar(wl.name)),
						w.Linef("image: %s", w.Scalar(wl.image)),
						w.When(len(wl.env) > 0, w.Block("env", w.Each(wl.env, func(v models.EnvVar) w.Step {
							return w.Item(
								w.Linef("name: %s", w.Scalar(v.Name)),
								w.Linef("value: %s", w.Scalar(v.Value)),
							)
						}))),
						w.When(len(wl.containers) > 0, w.Block("ports", w.Each(wl.containers, func(cp containerPort) w.Step {
							return w.Item(
								w.Linef("containerPort: %d", cp.port),
								w.Linef("protocol: %s", cp.protocol),
							)
						}))),
					)),
				),
			),
		),
	)
}

func (g *ClusterGenerator) service(p *models.Project, wl *workload, meta Meta) w.Step {
	serviceType := "ClusterIP"
	if wl.external {
		serviceType = "LoadBalancer"
	}

	return w.Seq(
		meta.Preamble(),
		w.Line("apiVersion: v1"),
		w.Line("kind: Service"),
		g.metadata(p, wl, wl.annotations),
		w.Block("spec",
			w.Linef("type: %s", serviceType),
			w.Block("selector", g.selector(p, wl)),
			w.Block("ports", w.Each(wl.ports, func(sp servicePort) w.Step {
				return w.Item(
					w.Linef("name: %s", sp.name()),
					w.Linef("port: %d", sp.port),
					w.Linef("targetPort: %d", sp.target),
					w.Linef("protocol: %s", sp.protocol),
				)
			})),
		),
	)
}

// sortedPairs writes "key: value" lines ordered by key.
func sortedPairs(m map[string]string) w.Step {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]w.Step, len(keys))
	for i, k := range keys {
		lines[i] = w.Linef("%s: %s", w.Scalar(k), w.Scalar(m[k]))
	}
	return w.Seq(lines...)
}
