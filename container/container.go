package container

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Station-Manager/dbinit/internal/log"
)

type bean struct {
	id              string
	beanType        reflect.Type
	instance        any
	singleton       bool
	hasDependencies bool
	dependencies    []string
	// dependsOn holds explicit ordering edges that do not imply injection.
	dependsOn  []string
	metadata   map[string]string
	detectedBy string
}

type namedPostProcessor struct {
	key string
	pp  RegistryPostProcessor
}

type Container struct {
	buildLock sync.Mutex
	// Protects access to registeredBeans, requiredDependency and postProcessors during registration/build.
	regMu sync.RWMutex
	// Indicates whether the container has been built/finalized.
	built atomic.Bool

	// requiredDependency maps bean identifiers to their corresponding reflect.Type, identifying dependencies
	// required by registered beans. For example, if `Service` has a dependency on `Config`, then `Config` will be
	// added to the requiredDependency list.
	requiredDependency map[string]reflect.Type

	// registeredBeans stores all registered beans mapped by their unique string identifiers.
	// This is the source of truth for all beans.
	registeredBeans map[string]bean

	postProcessors []namedPostProcessor
	env            Environment

	// activationOrder is the order Initialize() was invoked in during Build.
	activationOrder []string
}

// RegisterOption customises a bean definition at registration time.
type RegisterOption func(b *bean)

// WithDependsOn declares beans that must be activated before the registered bean,
// without injecting them.
func WithDependsOn(beanIDs ...string) RegisterOption {
	return func(b *bean) {
		for _, id := range beanIDs {
			b.dependsOn = appendUnique(b.dependsOn, normalizeID(id))
		}
	}
}

// WithMetadata attaches a free-form key/value pair to the bean definition.
func WithMetadata(key, value string) RegisterOption {
	return func(b *bean) {
		if b.metadata == nil {
			b.metadata = make(map[string]string)
		}
		b.metadata[key] = value
	}
}

func New() *Container {
	return &Container{
		requiredDependency: make(map[string]reflect.Type),
		registeredBeans:    make(map[string]bean),
	}
}

// Register registers a bean by its reflect.Type.
// If the type is a struct, it will be normalized to a pointer-to-struct for consistent injection semantics.
// Bean identifiers are case-insensitive: they are stored in lower case, and so are the
// `di.inject` tags that refer to them.
//
// This method only supports registering structs and pointers to structs; simple types (e.g., string)
// must be registered as instances using RegisterInstance.
func (c *Container) Register(beanID string, beanType reflect.Type, opts ...RegisterOption) error {
	if beanID == emptyString {
		return ErrBeanIdParamIsEmpty
	}
	if beanType == nil {
		return ErrBeanTypeParamIsNil
	}
	if c.built.Load() {
		return ErrRegistrationClosed
	}

	switch beanType.Kind() {
	case reflect.Ptr:
		if beanType.Elem().Kind() != reflect.Struct {
			return ErrBeanTypeNotSupported
		}
	case reflect.Struct:
		beanType = reflect.PointerTo(beanType)
	default:
		// Use RegisterInstance for simple literals instead.
		return ErrBeanTypeNotSupported
	}

	c.regMu.Lock()
	defer c.regMu.Unlock()
	c.addBean(bean{id: normalizeID(beanID), beanType: beanType}, opts)
	return nil
}

// RegisterInstance registers a concrete instance under beanID.
// The instance is treated as a singleton. Struct instances are normalized to pointers.
func (c *Container) RegisterInstance(beanID string, instance any, opts ...RegisterOption) error {
	if beanID == emptyString {
		return ErrBeanIdParamIsEmpty
	}
	if instance == nil {
		return ErrBeanParamIsNil
	}
	if c.built.Load() {
		return ErrRegistrationClosed
	}

	beanType := reflect.TypeOf(instance)

	// Normalize struct instances to pointers so pointer-typed fields can be injected
	// even if the user registered a struct value.
	if beanType.Kind() == reflect.Struct {
		ptr := reflect.New(beanType)
		ptr.Elem().Set(reflect.ValueOf(instance))
		instance = ptr.Interface()
		beanType = ptr.Type()
	}

	c.regMu.Lock()
	defer c.regMu.Unlock()
	c.addBean(bean{id: normalizeID(beanID), beanType: beanType, instance: instance, singleton: true}, opts)
	return nil
}

// addBean completes and stores b. Caller must hold regMu.
func (c *Container) addBean(b bean, opts []RegisterOption) {
	b.hasDependencies, b.dependencies = c.checkForDependency(b.beanType)
	for _, opt := range opts {
		opt(&b)
	}
	c.registeredBeans[b.id] = b
	log.Debug(log.CatContainer, "bean registered", "id", b.id, "type", b.beanType, "dependsOn", b.dependsOn)
}

// AddPostProcessor adds a registry post-processor under key. It reports false,
// leaving the container unchanged, when a post-processor with the same key is
// already installed.
func (c *Container) AddPostProcessor(key string, pp RegistryPostProcessor) (bool, error) {
	if pp == nil {
		return false, ErrPostProcessorIsNil
	}
	if c.built.Load() {
		return false, ErrRegistrationClosed
	}

	c.regMu.Lock()
	defer c.regMu.Unlock()
	for _, existing := range c.postProcessors {
		if existing.key == key {
			return false, nil
		}
	}
	c.postProcessors = append(c.postProcessors, namedPostProcessor{key: key, pp: pp})
	return true, nil
}

// PostProcessorKeys returns the keys of the installed post-processors in execution order.
func (c *Container) PostProcessorKeys() []string {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	keys := make([]string, 0, len(c.postProcessors))
	for _, p := range c.postProcessors {
		keys = append(keys, p.key)
	}
	return keys
}

// Build finalizes the container: it runs the registry post-processors, verifies all
// required dependencies are registered, instantiates all registered beans, injects
// dependencies and finally calls Initialize on beans in activation order.
//
// If the container has already been built, this method is a no-op.
func (c *Container) Build() (err error) {
	c.buildLock.Lock()
	defer c.buildLock.Unlock()

	if c.built.Load() {
		return nil
	}

	c.regMu.Lock()
	defer func() {
		// Mark as built only on successful completion.
		if err == nil {
			c.built.Store(true)
		}
		c.regMu.Unlock()
	}()

	if err = c.runPostProcessors(); err != nil {
		return err
	}
	if err = c.verifyRequiredDependencies(); err != nil {
		return err
	}
	if err = c.instantiate(); err != nil {
		return err
	}
	if err = c.injectDependencies(); err != nil {
		return err
	}

	order, err := c.resolveActivationOrder()
	if err != nil {
		return err
	}
	c.activationOrder = order

	for _, id := range order {
		bn := c.registeredBeans[id]
		if bn.instance == nil {
			continue
		}
		if initr, ok := bn.instance.(Initializer); ok {
			if ierr := initr.Initialize(); ierr != nil {
				return fmt.Errorf("initializer for bean '%s' failed: %w", id, ierr)
			}
		}
	}

	log.Info(log.CatContainer, "container built", "beans", len(c.registeredBeans))
	return nil
}

func (c *Container) runPostProcessors() error {
	reg := buildRegistry{c: c}
	for _, p := range c.postProcessors {
		if err := p.pp.PostProcessRegistry(reg); err != nil {
			return fmt.Errorf("post-processor '%s' failed: %w", p.key, err)
		}
	}
	return nil
}

// verifyRequiredDependencies checks that the required dependencies have been registered
// and that the registered bean type is compatible with the injection point.
func (c *Container) verifyRequiredDependencies() error {
	for beanID, requiredType := range c.requiredDependency {
		regBean, ok := c.registeredBeans[beanID]
		if !ok {
			// Missing string dependencies may be provided by the environment at injection time.
			if _, found := c.lookupLiteral(beanID, requiredType); found {
				continue
			}
			return fmt.Errorf("bean `%s` is required but not registered", beanID)
		}

		registeredType := regBean.beanType
		compatible := false

		switch requiredType.Kind() {
		case reflect.Struct:
			compatible = registeredType.Kind() == reflect.Ptr && registeredType.Elem() == requiredType
		case reflect.Interface:
			compatible = registeredType.Implements(requiredType)
		default:
			compatible = registeredType == requiredType
		}

		if !compatible {
			return fmt.Errorf("bean '%s' type mismatch: required %v, registered %v", beanID, requiredType, registeredType)
		}
	}
	return nil
}

func (c *Container) instantiate() error {
	for _, bn := range c.registeredBeans {
		if bn.instance != nil {
			continue
		}
		instance, err := createInstance(bn.beanType)
		if err != nil {
			return err
		}
		bn.instance = instance
		bn.singleton = true
		c.registeredBeans[bn.id] = bn
	}
	return nil
}

// resolveActivationOrder performs a DFS topological traversal over the injected
// dependencies and the depends-on edges. Beans are visited in sorted order so the
// result is stable for a given set of definitions.
func (c *Container) resolveActivationOrder() ([]string, error) {
	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	order := make([]string, 0, len(c.registeredBeans))

	var visit func(string) error
	visit = func(id string) error {
		if visited[id] {
			return nil
		}
		if onPath[id] {
			return fmt.Errorf("activation order: dependency cycle detected at '%s'", id)
		}
		onPath[id] = true
		bn := c.registeredBeans[id]
		for _, dep := range slices.Concat(bn.dependencies, bn.dependsOn) {
			if _, ok := c.registeredBeans[dep]; !ok {
				return fmt.Errorf("activation order: dependency '%s' required by '%s' not registered", dep, id)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		onPath[id] = false
		visited[id] = true
		order = append(order, id)
		return nil
	}

	for _, id := range c.beanIDs() {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// ActivationOrder returns the order in which beans were activated by Build.
// It is empty until the container has been built.
func (c *Container) ActivationOrder() []string {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	return slices.Clone(c.activationOrder)
}

// Resolve returns a bean instance by its ID or panics if it cannot be resolved.
// Prefer ResolveSafe in production code to handle errors gracefully.
func (c *Container) Resolve(beanID string) any {
	v, err := c.ResolveSafe(beanID)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveSafe returns a bean instance by its ID.
// It ensures the container is built before resolving and returns an error on failure.
func (c *Container) ResolveSafe(beanID string) (any, error) {
	if beanID == emptyString {
		return nil, ErrBeanIdParamIsEmpty
	}

	beanID = normalizeID(beanID)

	if !c.built.Load() {
		if err := c.Build(); err != nil {
			return nil, err
		}
	}

	c.regMu.RLock()
	bn, ok := c.registeredBeans[beanID]
	c.regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrBeanNotFound, beanID)
	}

	if bn.instance == nil {
		return nil, fmt.Errorf("bean '%s' is not initialized", beanID)
	}

	return bn.instance, nil
}

// ResolveAs returns a bean instance by its ID and casts it to type T.
// It ensures the container is built before resolving and returns an error on failure.
func ResolveAs[T any](c *Container, beanID string) (T, error) {
	v, err := c.ResolveSafe(beanID)
	if err != nil {
		var zero T
		return zero, err
	}
	x, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("bean '%s' is not of requested type", beanID)
	}
	return x, nil
}

func normalizeID(beanID string) string {
	return strings.ToLower(beanID)
}
