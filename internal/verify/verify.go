// Package verify loads rendered manifests back through the upstream
// libraries of each backend to make sure they are structurally valid.
package verify

import (
	"context"
	"fmt"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"github.com/stackgen-cli/topogen/internal/generator"
	"github.com/stackgen-cli/topogen/internal/logging"
	"github.com/stackgen-cli/topogen/internal/naming"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

// Compose loads a rendered compose file the way the compose CLI would,
// without touching the filesystem or resolving includes.
func Compose(ctx context.Context, projectName, content string) (*types.Project, error) {
	logger := logging.FromContext(ctx)

	cdm := types.ConfigDetails{
		WorkingDir:  ".",
		ConfigFiles: []types.ConfigFile{{Filename: "compose.yaml", Content: []byte(content)}},
		Environment: map[string]string{},
	}
	model, err := loader.LoadModelWithContext(ctx, cdm, func(o *loader.Options) {
		o.SetProjectName(naming.ServiceName(projectName), false)
		o.SkipInclude = true
		o.SkipResolveEnvironment = true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load compose model: %w", err)
	}
	if _, ok := model["version"]; ok {
		logger.Debug("compose: version marker present", "project", projectName)
	}

	var proj *types.Project
	if err := loader.Transform(model, &proj); err != nil {
		return nil, fmt.Errorf("failed to transform compose model to project: %w", err)
	}
	return proj, nil
}

// Objects counts what Cluster decoded.
type Objects struct {
	Deployments []*appsv1.Deployment
	Services    []*corev1.Service
}

// Cluster decodes every rendered file strictly into its typed Kubernetes
// object and checks object and port names.
func Cluster(files []generator.File) (*Objects, error) {
	objs := &Objects{}
	for _, f := range files {
		if err := objs.decode(f); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return objs, nil
}

func (o *Objects) decode(f generator.File) error {
	var tm metav1.TypeMeta
	if err := yaml.Unmarshal([]byte(f.Content), &tm); err != nil {
		return fmt.Errorf("failed to read object kind: %w", err)
	}

	switch {
	case tm.APIVersion == "apps/v1" && tm.Kind == "Deployment":
		var d appsv1.Deployment
		if err := yaml.UnmarshalStrict([]byte(f.Content), &d); err != nil {
			return fmt.Errorf("invalid deployment: %w", err)
		}
		if err := checkMeta(d.ObjectMeta); err != nil {
			return err
		}
		if len(d.Spec.Template.Spec.Containers) == 0 {
			return fmt.Errorf("deployment %s has no containers", d.Name)
		}
		o.Deployments = append(o.Deployments, &d)

	case tm.APIVersion == "v1" && tm.Kind == "Service":
		var s corev1.Service
		if err := yaml.UnmarshalStrict([]byte(f.Content), &s); err != nil {
			return fmt.Errorf("invalid service: %w", err)
		}
		if err := checkMeta(s.ObjectMeta); err != nil {
			return err
		}
		for _, p := range s.Spec.Ports {
			if err := naming.ValidatePortName(p.Name); err != nil {
				return fmt.Errorf("service %s: %w", s.Name, err)
			}
		}
		o.Services = append(o.Services, &s)

	default:
		return fmt.Errorf("unexpected object %s %s", tm.APIVersion, tm.Kind)
	}
	return nil
}

func checkMeta(meta metav1.ObjectMeta) error {
	if err := naming.ValidateLabel(meta.Name); err != nil {
		return err
	}
	if meta.Namespace != "" {
		if err := naming.ValidateLabel(meta.Namespace); err != nil {
			return fmt.Errorf("namespace: %w", err)
		}
	}
	return nil
}
