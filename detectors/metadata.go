package detectors

import (
	"github.com/Station-Manager/dbinit"
	"github.com/Station-Manager/dbinit/container"
	"github.com/Station-Manager/dbinit/internal/log"
)

const (
	// MetadataKeyProperty is the environment key naming the bean metadata key
	// that carries a bean's database role.
	MetadataKeyProperty = "dbinit.detector.metadata-key"
	// DefaultMetadataKey is used when MetadataKeyProperty is not set.
	DefaultMetadataKey = "dbinit.role"

	RoleInitializer = "initializer"
	RoleDependent   = "dependent"
)

func metadataKey(env container.Environment) string {
	if env != nil && env.IsSet(MetadataKeyProperty) {
		if key := env.GetString(MetadataKeyProperty); key != "" {
			return key
		}
	}
	return DefaultMetadataKey
}

// MetadataInitializerDetector detects beans registered with
// container.WithMetadata(key, "initializer"), where key comes from the environment.
type MetadataInitializerDetector struct {
	key string
	// merged is the size of the set passed to the last DetectionComplete call.
	merged int
}

func NewMetadataInitializerDetector(env container.Environment) *MetadataInitializerDetector {
	return &MetadataInitializerDetector{key: metadataKey(env)}
}

// Key returns the metadata key the detector inspects.
func (d *MetadataInitializerDetector) Key() string {
	return d.key
}

func (d *MetadataInitializerDetector) Detect(s container.Snapshot) (dbinit.Set, error) {
	return detectByRole(s, d.key, RoleInitializer), nil
}

func (d *MetadataInitializerDetector) DetectionComplete(_ container.Snapshot, initializers dbinit.Set) error {
	d.merged = initializers.Len()
	log.Debug(log.CatDBInit, "initializer detection complete", "detector", "metadata", "initializers", d.merged)
	return nil
}

// Merged returns the number of initializers seen by the last DetectionComplete.
func (d *MetadataInitializerDetector) Merged() int {
	return d.merged
}

// MetadataDependentDetector detects beans registered with
// container.WithMetadata(key, "dependent").
type MetadataDependentDetector struct {
	key string
}

func NewMetadataDependentDetector(env container.Environment) *MetadataDependentDetector {
	return &MetadataDependentDetector{key: metadataKey(env)}
}

func (d *MetadataDependentDetector) Key() string {
	return d.key
}

func (d *MetadataDependentDetector) Detect(s container.Snapshot) (dbinit.Set, error) {
	return detectByRole(s, d.key, RoleDependent), nil
}

func detectByRole(s container.Snapshot, key, role string) dbinit.Set {
	found := dbinit.NewSet()
	for _, id := range s.BeanIDs() {
		def, ok := s.Definition(id)
		if !ok {
			continue
		}
		if def.Metadata[key] == role {
			found.Add(id)
		}
	}
	return found
}
