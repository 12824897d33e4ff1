// Package generator renders a validated Project into backend manifests.
package generator

import (
	"fmt"
	"strings"
	"time"

	"github.com/stackgen-cli/topogen/internal/models"
	"github.com/stackgen-cli/topogen/internal/naming"
	"github.com/stackgen-cli/topogen/internal/writer"
)

// Backend identifies a manifest flavour.
type Backend int

const (
	Compose Backend = iota + 1
	Cluster
)

var backends = []Backend{Compose, Cluster}

func (b Backend) String() string {
	switch b {
	case Compose:
		return "compose"
	case Cluster:
		return "cluster"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend matches s case-insensitively against the known backends.
func ParseBackend(s string) (Backend, error) {
	for _, b := range backends {
		if strings.EqualFold(s, b.String()) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown backend %q (expected compose or cluster)", s)
}

// Backends lists the known backend names.
func Backends() []string {
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.String()
	}
	return names
}

// TargetKind is the shape of the path a backend writes to.
type TargetKind int

const (
	TargetFile TargetKind = iota + 1
	TargetDirectory
)

func (k TargetKind) String() string {
	switch k {
	case TargetFile:
		return "file"
	case TargetDirectory:
		return "directory"
	}
	return fmt.Sprintf("TargetKind(%d)", int(k))
}

// Meta describes the run that produced an output.
type Meta struct {
	Tool    string
	Version string
	Source  string
	Time    time.Time
}

// ToolName is the tool recorded in the first preamble line.
const ToolName = "topogen"

// generatedPrefix starts the first preamble line of every file this tool renders.
const generatedPrefix = "# Generated by " + ToolName + " "

// IsGenerated reports whether content opens with this tool's preamble.
func IsGenerated(content string) bool {
	return strings.HasPrefix(content, generatedPrefix)
}

// TimestampPrefix starts the only preamble line that differs between runs.
const TimestampPrefix = "# Generated at: "

// Preamble writes the three comment lines that open every rendered file.
func (m Meta) Preamble() writer.Step {
	return writer.Seq(
		writer.Linef("# Generated by %s %s", m.Tool, m.Version),
		writer.Linef("# Source: %s", m.Source),
		writer.Line(TimestampPrefix+m.Time.UTC().Format(time.RFC3339)),
	)
}

// File is one rendered manifest. Name is relative to the output target;
// it is empty for single-file backends.
type File struct {
	Name    string
	Content string
}

// Output holds everything one run rendered.
type Output struct {
	Files []File
}

// Generator renders a Project for one backend.
type Generator interface {
	Backend() Backend
	Target() TargetKind

	// Check runs every backend precondition without rendering anything.
	Check(p *models.Project) error

	// Generate checks p and renders it completely into memory.
	Generate(p *models.Project, meta Meta) (*Output, error)
}

// Options tune rendering.
type Options struct {
	Indent         int
	ComposeVersion string
	Restart        string
	ProxyImage     string
	IncludeEdges   bool
	Replicas       int
	Namespace      string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Indent:         writer.DefaultIndent,
		ComposeVersion: "3.8",
		Restart:        "always",
		ProxyImage:     "nginx:stable",
		IncludeEdges:   true,
		Replicas:       1,
	}
}

// New returns the generator for backend.
func New(backend Backend, opts Options) (Generator, error) {
	switch backend {
	case Compose:
		return &ComposeGenerator{opts: opts}, nil
	case Cluster:
		return &ClusterGenerator{opts: opts}, nil
	}
	return nil, fmt.Errorf("unsupported backend %s", backend)
}

func (o Options) writerOptions() []writer.Option {
	return []writer.Option{writer.WithIndent(o.Indent)}
}

// collisionErrors turns every name claimed twice into a precondition failure.
func collisionErrors(reg *naming.Registry) models.ValidationErrors {
	var errs models.ValidationErrors
	for _, c := range reg.Collisions() {
		errs = append(errs, models.NewValidationError(models.ErrPrecondition, c.Name, "%s", c.Error()))
	}
	return errs
}
