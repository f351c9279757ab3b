package dbinit

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/Station-Manager/dbinit/container"
)

// Factory creates a detector. env is the environment the container is being
// built with; it may be nil.
type Factory[T any] func(env container.Environment) (T, error)

// NoArg adapts a zero-argument constructor to a Factory.
func NoArg[T any](newFn func() T) Factory[T] {
	return func(container.Environment) (T, error) {
		return newFn(), nil
	}
}

// WithEnvironment adapts a constructor that takes the active environment to a Factory.
func WithEnvironment[T any](newFn func(container.Environment) T) Factory[T] {
	return func(env container.Environment) (T, error) {
		return newFn(env), nil
	}
}

type entry[T any] struct {
	name    string
	factory Factory[T]
}

type entries[T any] []entry[T]

func (e entries[T]) lookup(name string) (Factory[T], bool) {
	for _, en := range e {
		if en.name == name {
			return en.factory, true
		}
	}
	return nil, false
}

func (e entries[T]) names() []string {
	out := make([]string, 0, len(e))
	for _, en := range e {
		out = append(out, en.name)
	}
	return out
}

// Catalog holds the detector factories known to the process, by capability,
// in registration order.
type Catalog struct {
	mu           sync.RWMutex
	initializers entries[InitializerDetector]
	dependents   entries[DependentDetector]
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

var defaultCatalog = NewCatalog()

// DefaultCatalog returns the process-wide catalog populated by the Must* functions.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// RegisterInitializerDetector adds an initializer detector factory to c. The entry is
// named after D's canonical name, which is also the name used in manifests.
func RegisterInitializerDetector[D InitializerDetector](c *Catalog, f Factory[D]) error {
	if f == nil {
		return fmt.Errorf("%w: nil factory for %s", ErrDetectorInstantiation, NameOf[D]())
	}
	name := NameOf[D]()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.initializers.lookup(name); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDetector, name)
	}
	c.initializers = append(c.initializers, entry[InitializerDetector]{name: name, factory: widen[D, InitializerDetector](f)})
	return nil
}

// RegisterDependentDetector adds a dependent detector factory to c, named after D.
func RegisterDependentDetector[D DependentDetector](c *Catalog, f Factory[D]) error {
	if f == nil {
		return fmt.Errorf("%w: nil factory for %s", ErrDetectorInstantiation, NameOf[D]())
	}
	name := NameOf[D]()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.dependents.lookup(name); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDetector, name)
	}
	c.dependents = append(c.dependents, entry[DependentDetector]{name: name, factory: widen[D, DependentDetector](f)})
	return nil
}

// MustRegisterInitializerDetector registers f in the default catalog. It panics
// when D is already registered, and is intended to be called from init.
func MustRegisterInitializerDetector[D InitializerDetector](f Factory[D]) {
	if err := RegisterInitializerDetector(defaultCatalog, f); err != nil {
		panic(err)
	}
}

// MustRegisterDependentDetector registers f in the default catalog, panicking on duplicates.
func MustRegisterDependentDetector[D DependentDetector](f Factory[D]) {
	if err := RegisterDependentDetector(defaultCatalog, f); err != nil {
		panic(err)
	}
}

// InitializerDetectorNames returns the registered initializer detector names in registration order.
func (c *Catalog) InitializerDetectorNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initializers.names()
}

// DependentDetectorNames returns the registered dependent detector names in registration order.
func (c *Catalog) DependentDetectorNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dependents.names()
}

func (c *Catalog) initializerEntries() entries[InitializerDetector] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.initializers)
}

func (c *Catalog) dependentEntries() entries[DependentDetector] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.dependents)
}

// widen converts a factory of a concrete detector type to a factory of its capability.
// A nil detector is reported as an instantiation failure.
func widen[D any, I any](f Factory[D]) Factory[I] {
	return func(env container.Environment) (I, error) {
		var zero I
		d, err := f(env)
		if err != nil {
			return zero, err
		}
		if isNil(d) {
			return zero, errors.New("factory returned nil")
		}
		i, ok := any(d).(I)
		if !ok {
			return zero, fmt.Errorf("%T does not implement %s", d, NameOf[I]())
		}
		return i, nil
	}
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
