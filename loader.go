package dbinit

import (
	"fmt"

	"github.com/Station-Manager/dbinit/container"
	"github.com/Station-Manager/dbinit/internal/log"
)

// Descriptor pairs a detector instance with the canonical name of its implementation.
type Descriptor[T any] struct {
	Name     string
	Detector T
}

// Loader instantiates the detectors of a resolution pass.
type Loader struct {
	// Catalog supplies the factories. Nil means DefaultCatalog().
	Catalog *Catalog
	// Manifest selects the participating detectors. When nil every catalog
	// entry participates, in registration order.
	Manifest Manifest
}

func (l Loader) catalog() *Catalog {
	if l.Catalog == nil {
		return defaultCatalog
	}
	return l.Catalog
}

// InitializerDetectors creates one instance of every participating initializer detector.
func (l Loader) InitializerDetectors(env container.Environment) ([]Descriptor[InitializerDetector], error) {
	return instantiate(l.catalog().initializerEntries(), l.Manifest, InitializerDetectorKey, env)
}

// DependentDetectors creates one instance of every participating dependent detector.
func (l Loader) DependentDetectors(env container.Environment) ([]Descriptor[DependentDetector], error) {
	return instantiate(l.catalog().dependentEntries(), l.Manifest, DependentDetectorKey, env)
}

func instantiate[T any](available entries[T], manifest Manifest, key string, env container.Environment) ([]Descriptor[T], error) {
	names := available.names()
	if manifest != nil {
		names = manifest.Names(key)
	}

	out := make([]Descriptor[T], 0, len(names))
	for _, name := range names {
		factory, ok := available.lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s listed under %s", ErrUnknownDetector, name, key)
		}
		d, err := factory(env)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDetectorInstantiation, name, err)
		}
		out = append(out, Descriptor[T]{Name: TypeName(d), Detector: d})
		log.Debug(log.CatDBInit, "detector instantiated", "capability", key, "name", name)
	}
	return out, nil
}
