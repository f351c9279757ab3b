package dbinit

import (
	"context"
	"reflect"

	"github.com/Station-Manager/dbinit/container"
)

// InitializerDetector finds the beans that initialize a database.
type InitializerDetector interface {
	// Detect returns the identifiers of the database initializer beans it recognises.
	Detect(r container.Snapshot) (Set, error)
	// DetectionComplete is called once, after every initializer detector ran,
	// with the merged set of detected initializers.
	DetectionComplete(r container.Snapshot, initializers Set) error
}

// DependentDetector finds the beans that depend on database initialization.
type DependentDetector interface {
	Detect(r container.Snapshot) (Set, error)
}

// NoopCompletion can be embedded by initializer detectors that have nothing to do
// once detection is complete.
type NoopCompletion struct{}

func (NoopCompletion) DetectionComplete(container.Snapshot, Set) error { return nil }

// DatabaseInitializer is implemented by beans that initialize a database. It
// reports whether any initialization was performed.
type DatabaseInitializer interface {
	InitializeDatabase(ctx context.Context) (bool, error)
}

// DependsOnDatabaseInitialization marks beans that must only be activated once
// the database has been initialized.
type DependsOnDatabaseInitialization interface {
	DependsOnDatabaseInitialization()
}

var (
	// InitializerDetectorKey is the manifest key listing initializer detectors.
	InitializerDetectorKey = TypeNameOf(reflect.TypeOf((*InitializerDetector)(nil)).Elem())
	// DependentDetectorKey is the manifest key listing dependent detectors.
	DependentDetectorKey = TypeNameOf(reflect.TypeOf((*DependentDetector)(nil)).Elem())
)

// TypeName returns the canonical name of v's type: its package path and type
// name joined by a dot. Pointers are dereferenced.
func TypeName(v any) string {
	return TypeNameOf(reflect.TypeOf(v))
}

// NameOf returns the canonical name of type T.
func NameOf[T any]() string {
	return TypeNameOf(reflect.TypeOf((*T)(nil)).Elem())
}

// TypeNameOf returns the canonical name of t. Unnamed types fall back to t.String().
func TypeNameOf(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr && t.Name() == "" {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
