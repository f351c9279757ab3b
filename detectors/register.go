package detectors

import "github.com/Station-Manager/dbinit"

func init() {
	if err := Register(dbinit.DefaultCatalog()); err != nil {
		panic(err)
	}
}

// Register adds the built-in detectors to c. Use it to build a catalog that is
// independent of the default one.
func Register(c *dbinit.Catalog) error {
	if err := dbinit.RegisterInitializerDetector(c, dbinit.NoArg(NewTypeInitializerDetector)); err != nil {
		return err
	}
	if err := dbinit.RegisterInitializerDetector(c, dbinit.WithEnvironment(NewMetadataInitializerDetector)); err != nil {
		return err
	}
	if err := dbinit.RegisterDependentDetector(c, dbinit.NoArg(NewTypeDependentDetector)); err != nil {
		return err
	}
	return dbinit.RegisterDependentDetector(c, dbinit.WithEnvironment(NewMetadataDependentDetector))
}
