// Package plan describes a set of components in YAML and resolves the order in
// which a container activates them once database initialization ordering is
// applied.
package plan

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/Station-Manager/dbinit"
	"github.com/Station-Manager/dbinit/container"
	"github.com/Station-Manager/dbinit/internal/log"
)

var ErrInvalidPlan = errors.New("invalid plan")

// Roles a component may declare. The role selects the component's type, so the
// type-based detectors see it; metadata-based detection is driven by Metadata.
const (
	RoleNone        = ""
	RoleInitializer = "initializer"
	RoleDependent   = "dependent"
)

type Component struct {
	ID        string            `yaml:"id"`
	Role      string            `yaml:"role"`
	DependsOn []string          `yaml:"depends_on"`
	Metadata  map[string]string `yaml:"metadata"`
}

type Plan struct {
	Components []Component `yaml:"components"`
	// Manifest selects the participating detectors. Absent means every detector
	// of the catalog participates.
	Manifest dbinit.Manifest `yaml:"manifest"`
	// Environment is handed to the container and, through it, to the detectors.
	Environment map[string]any `yaml:"environment"`
}

// Parse decodes a plan and validates it.
func Parse(r io.Reader) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads the plan stored at path.
func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Validate checks identifiers and roles. Depends-on targets are checked by the
// container when the plan runs.
func (p *Plan) Validate() error {
	seen := make(map[string]bool, len(p.Components))
	for i, c := range p.Components {
		id := strings.ToLower(strings.TrimSpace(c.ID))
		if id == "" {
			return fmt.Errorf("%w: component %d has no id", ErrInvalidPlan, i)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate component '%s'", ErrInvalidPlan, id)
		}
		seen[id] = true
		switch c.Role {
		case RoleNone, RoleInitializer, RoleDependent:
		default:
			return fmt.Errorf("%w: component '%s' has unknown role %q", ErrInvalidPlan, id, c.Role)
		}
	}
	return nil
}

// Options tune how a plan runs.
type Options struct {
	// Catalog supplies the detectors. Nil means dbinit.DefaultCatalog().
	Catalog *dbinit.Catalog
	// Manifest is used when the plan declares none.
	Manifest dbinit.Manifest
	Tracer   trace.Tracer
}

// ComponentResult is the resolved definition of one component.
type ComponentResult struct {
	ID         string   `yaml:"id"`
	DetectedBy string   `yaml:"detected_by,omitempty"`
	DependsOn  []string `yaml:"depends_on,omitempty"`
}

type Result struct {
	// Order is the activation order of the components.
	Order      []string          `yaml:"order"`
	Components []ComponentResult `yaml:"components"`
}

// Run registers the components in a fresh container, installs the resolver and
// builds the container.
func (p *Plan) Run(opts Options) (*Result, error) {
	c := container.New()

	env := viper.New()
	if len(p.Environment) > 0 {
		if err := env.MergeConfigMap(p.Environment); err != nil {
			return nil, fmt.Errorf("%w: environment: %v", ErrInvalidPlan, err)
		}
	}
	if err := c.SetEnvironment(env); err != nil {
		return nil, err
	}

	for _, comp := range p.Components {
		regOpts := []container.RegisterOption{container.WithDependsOn(comp.DependsOn...)}
		for _, k := range slices.Sorted(maps.Keys(comp.Metadata)) {
			regOpts = append(regOpts, container.WithMetadata(k, comp.Metadata[k]))
		}
		if err := c.RegisterInstance(comp.ID, newComponent(comp), regOpts...); err != nil {
			return nil, fmt.Errorf("register '%s': %w", comp.ID, err)
		}
	}

	resolverOpts := []dbinit.Option{}
	if opts.Catalog != nil {
		resolverOpts = append(resolverOpts, dbinit.WithCatalog(opts.Catalog))
	}
	switch {
	case p.Manifest != nil:
		resolverOpts = append(resolverOpts, dbinit.WithManifest(p.Manifest))
	case opts.Manifest != nil:
		resolverOpts = append(resolverOpts, dbinit.WithManifest(opts.Manifest))
	}
	if opts.Tracer != nil {
		resolverOpts = append(resolverOpts, dbinit.WithTracer(opts.Tracer))
	}
	if err := dbinit.Install(c, resolverOpts...); err != nil {
		return nil, err
	}

	if err := c.Build(); err != nil {
		return nil, err
	}

	res := &Result{Order: c.ActivationOrder()}
	for _, id := range c.BeanIDs() {
		def, _ := c.Definition(id)
		res.Components = append(res.Components, ComponentResult{
			ID:         def.ID,
			DetectedBy: def.DetectedBy,
			DependsOn:  def.DependsOn,
		})
	}
	log.Debug(log.CatCLI, "plan resolved", "components", len(res.Components))
	return res, nil
}
