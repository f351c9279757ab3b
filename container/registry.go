package container

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Definition is a read-only copy of a registered bean's metadata.
type Definition struct {
	ID   string
	Type reflect.Type
	// Metadata is the free-form key/value data supplied with WithMetadata.
	Metadata map[string]string
	// DependsOn lists beans that must be activated before this one, in insertion order.
	DependsOn []string
	// DetectedBy names the detector that classified this bean as a database initializer.
	DetectedBy string
}

// Implements reports whether the bean's type implements the interface iface.
// iface is usually obtained with reflect.TypeOf((*I)(nil)).Elem().
func (d Definition) Implements(iface reflect.Type) bool {
	if d.Type == nil || iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	return d.Type.Implements(iface)
}

// Snapshot is the read access to the bean definitions handed to detectors.
type Snapshot interface {
	// BeanIDs returns the registered bean identifiers in sorted order.
	BeanIDs() []string
	Definition(beanID string) (Definition, bool)
	Environment() Environment
}

// Registry extends Snapshot with the mutations allowed during post-processing.
type Registry interface {
	Snapshot
	// AddDependsOn appends dependsOn to the bean's depends-on set. Identifiers
	// already present are ignored.
	AddDependsOn(beanID string, dependsOn ...string) error
	// SetDetectedBy records the name of the detector that found the bean.
	SetDetectedBy(beanID string, detector string) error
}

func (b bean) definition() Definition {
	return Definition{
		ID:         b.id,
		Type:       b.beanType,
		Metadata:   maps.Clone(b.metadata),
		DependsOn:  slices.Clone(b.dependsOn),
		DetectedBy: b.detectedBy,
	}
}

// BeanIDs returns the registered bean identifiers in sorted order.
func (c *Container) BeanIDs() []string {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	return c.beanIDs()
}

// Definition returns a copy of the definition registered under beanID.
func (c *Container) Definition(beanID string) (Definition, bool) {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	b, ok := c.registeredBeans[normalizeID(beanID)]
	if !ok {
		return Definition{}, false
	}
	return b.definition(), true
}

func (c *Container) beanIDs() []string {
	return slices.Sorted(maps.Keys(c.registeredBeans))
}

// buildRegistry is the Registry view handed to post-processors. Build holds
// regMu for the whole post-processing phase, so it accesses the maps directly.
type buildRegistry struct {
	c *Container
}

func (r buildRegistry) BeanIDs() []string {
	return r.c.beanIDs()
}

func (r buildRegistry) Definition(beanID string) (Definition, bool) {
	b, ok := r.c.registeredBeans[normalizeID(beanID)]
	if !ok {
		return Definition{}, false
	}
	return b.definition(), true
}

func (r buildRegistry) Environment() Environment {
	return r.c.env
}

func (r buildRegistry) AddDependsOn(beanID string, dependsOn ...string) error {
	id := normalizeID(beanID)
	b, ok := r.c.registeredBeans[id]
	if !ok {
		return fmt.Errorf("add depends-on to '%s': %w", id, ErrBeanNotFound)
	}
	for _, dep := range dependsOn {
		b.dependsOn = appendUnique(b.dependsOn, normalizeID(dep))
	}
	r.c.registeredBeans[id] = b
	return nil
}

func (r buildRegistry) SetDetectedBy(beanID string, detector string) error {
	id := normalizeID(beanID)
	b, ok := r.c.registeredBeans[id]
	if !ok {
		return fmt.Errorf("set detected-by on '%s': %w", id, ErrBeanNotFound)
	}
	b.detectedBy = detector
	r.c.registeredBeans[id] = b
	return nil
}
