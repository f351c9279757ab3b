// Package detectors provides the built-in database initialization detectors.
// Importing it registers them in the default catalog.
package detectors

import (
	"reflect"

	"github.com/Station-Manager/dbinit"
	"github.com/Station-Manager/dbinit/container"
)

var (
	databaseInitializerType = reflect.TypeOf((*dbinit.DatabaseInitializer)(nil)).Elem()
	dependsOnDatabaseType   = reflect.TypeOf((*dbinit.DependsOnDatabaseInitialization)(nil)).Elem()
)

// TypeInitializerDetector detects beans whose type implements dbinit.DatabaseInitializer.
type TypeInitializerDetector struct {
	dbinit.NoopCompletion
}

func NewTypeInitializerDetector() *TypeInitializerDetector {
	return &TypeInitializerDetector{}
}

func (d *TypeInitializerDetector) Detect(s container.Snapshot) (dbinit.Set, error) {
	return detectByType(s, databaseInitializerType), nil
}

// TypeDependentDetector detects beans whose type implements
// dbinit.DependsOnDatabaseInitialization.
type TypeDependentDetector struct{}

func NewTypeDependentDetector() *TypeDependentDetector {
	return &TypeDependentDetector{}
}

func (d *TypeDependentDetector) Detect(s container.Snapshot) (dbinit.Set, error) {
	return detectByType(s, dependsOnDatabaseType), nil
}

func detectByType(s container.Snapshot, iface reflect.Type) dbinit.Set {
	found := dbinit.NewSet()
	for _, id := range s.BeanIDs() {
		if def, ok := s.Definition(id); ok && def.Implements(iface) {
			found.Add(id)
		}
	}
	return found
}
