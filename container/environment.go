package container

import "reflect"

// Environment is the key/value configuration the container is refreshed with.
// *viper.Viper satisfies it.
//
// Keys are looked up using the lower-case bean identifier, so an environment
// entry can stand in for a missing string bean (e.g., `di.inject:"WorkingDir"`
// is satisfied by the key "workingdir").
type Environment interface {
	Get(key string) any
	GetString(key string) string
	IsSet(key string) bool
}

// MapEnvironment is a minimal Environment backed by a map. Keys are matched exactly.
type MapEnvironment map[string]any

func (m MapEnvironment) Get(key string) any {
	return m[key]
}

func (m MapEnvironment) GetString(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return emptyString
}

func (m MapEnvironment) IsSet(key string) bool {
	_, ok := m[key]
	return ok
}

// SetEnvironment installs the environment used while building the container.
// It must be called before Build.
func (c *Container) SetEnvironment(env Environment) error {
	if c.built.Load() {
		return ErrRegistrationClosed
	}
	c.regMu.Lock()
	c.env = env
	c.regMu.Unlock()
	return nil
}

// Environment returns the environment installed with SetEnvironment (may be nil).
func (c *Container) Environment() Environment {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	return c.env
}

// lookupLiteral resolves a missing string dependency from the environment.
// Caller must hold regMu.
func (c *Container) lookupLiteral(id string, targetType reflect.Type) (any, bool) {
	if c.env == nil || targetType.Kind() != reflect.String {
		return nil, false
	}
	if !c.env.IsSet(id) {
		return nil, false
	}
	return c.env.GetString(id), true
}
