// Package dbinit orders bean activation around database initialization.
//
// Detectors classify the beans of a container: initializer detectors find beans
// that create or populate a database (schema scripts, migrations), dependent
// detectors find beans that need an initialized database. The Resolver runs
// every detector once per container build and adds a depends-on edge from each
// dependent to each initializer, so the container activates initializers first.
//
// Detectors are discovered through a Catalog of named factories. A Manifest
// selects which catalog entries participate; without one, every registered
// detector does. Install hooks the Resolver into a container.
//
//	c := container.New()
//	_ = c.SetEnvironment(viper.GetViper())
//	_ = dbinit.Install(c)
//	err := c.Build()
package dbinit
