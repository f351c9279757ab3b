package container

// Initializer is an optional interface that a bean may implement to perform
// additional initialization after all of its dependencies have been injected.
//
// The container calls Initialize() during Build(), once injection has completed,
// following the activation order: injected dependencies and depends-on edges
// are initialized before the bean itself. If Initialize returns an error, Build()
// fails with that error.
type Initializer interface {
	Initialize() error
}

// RegistryPostProcessor is invoked during Build(), before any bean is
// instantiated, with mutable access to the bean definitions. Post-processors
// run sequentially in the order they were added.
type RegistryPostProcessor interface {
	PostProcessRegistry(r Registry) error
}

// PostProcessorFunc adapts a function to RegistryPostProcessor.
type PostProcessorFunc func(r Registry) error

func (f PostProcessorFunc) PostProcessRegistry(r Registry) error {
	return f(r)
}
