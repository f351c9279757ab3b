package dbinit_test

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Station-Manager/dbinit"
	"github.com/Station-Manager/dbinit/container"
)

// memRegistry is an in-memory container.Registry for driving the resolver directly.
type memRegistry struct {
	defs map[string]*container.Definition
	env  container.Environment
}

func newMemRegistry(ids ...string) *memRegistry {
	r := &memRegistry{defs: make(map[string]*container.Definition)}
	for _, id := range ids {
		r.defs[id] = &container.Definition{ID: id}
	}
	return r
}

func (r *memRegistry) BeanIDs() []string {
	return slices.Sorted(maps.Keys(r.defs))
}

func (r *memRegistry) Definition(id string) (container.Definition, bool) {
	d, ok := r.defs[strings.ToLower(id)]
	if !ok {
		return container.Definition{}, false
	}
	return container.Definition{ID: d.ID, DependsOn: slices.Clone(d.DependsOn), DetectedBy: d.DetectedBy}, true
}

func (r *memRegistry) Environment() container.Environment {
	return r.env
}

func (r *memRegistry) AddDependsOn(id string, deps ...string) error {
	d, ok := r.defs[id]
	if !ok {
		return fmt.Errorf("unknown bean %s", id)
	}
	for _, dep := range deps {
		if !slices.Contains(d.DependsOn, dep) {
			d.DependsOn = append(d.DependsOn, dep)
		}
	}
	return nil
}

func (r *memRegistry) SetDetectedBy(id, detector string) error {
	d, ok := r.defs[id]
	if !ok {
		return fmt.Errorf("unknown bean %s", id)
	}
	d.DetectedBy = detector
	return nil
}

// edges returns every bean's depends-on list keyed by bean id.
func (r *memRegistry) edges() map[string][]string {
	out := make(map[string][]string, len(r.defs))
	for id, d := range r.defs {
		out[id] = slices.Clone(d.DependsOn)
	}
	return out
}

// initializerDetector reports a fixed set of beans and records completions.
type initializerDetector struct {
	found       []string
	err         error
	completeErr error
	completions []dbinit.Set
}

func (d *initializerDetector) Detect(container.Snapshot) (dbinit.Set, error) {
	if d.err != nil {
		return nil, d.err
	}
	return dbinit.NewSet(d.found...), nil
}

func (d *initializerDetector) DetectionComplete(_ container.Snapshot, initializers dbinit.Set) error {
	d.completions = append(d.completions, initializers)
	return d.completeErr
}

// otherInitializerDetector is a second, distinctly named initializer detector.
type otherInitializerDetector struct {
	initializerDetector
}

type dependentDetector struct {
	found []string
	err   error
}

func (d *dependentDetector) Detect(container.Snapshot) (dbinit.Set, error) {
	if d.err != nil {
		return nil, d.err
	}
	return dbinit.NewSet(d.found...), nil
}

type otherDependentDetector struct {
	dependentDetector
}

// environmentInitializerDetector captures the environment it was constructed with.
type environmentInitializerDetector struct {
	dbinit.NoopCompletion
	env container.Environment
}

func (d *environmentInitializerDetector) Detect(container.Snapshot) (dbinit.Set, error) {
	return dbinit.NewSet("alpha"), nil
}

type environmentDependentDetector struct {
	env container.Environment
}

func (d *environmentDependentDetector) Detect(container.Snapshot) (dbinit.Set, error) {
	return dbinit.NewSet(), nil
}

func catalogWith(initDet *initializerDetector, dep *dependentDetector) *dbinit.Catalog {
	cat := dbinit.NewCatalog()
	if initDet != nil {
		_ = dbinit.RegisterInitializerDetector(cat, dbinit.NoArg(func() *initializerDetector { return initDet }))
	}
	if dep != nil {
		_ = dbinit.RegisterDependentDetector(cat, dbinit.NoArg(func() *dependentDetector { return dep }))
	}
	return cat
}
