package plan

import "context"

// component is the bean registered for a plan entry that declares no role.
type component struct {
	id string
}

// initializerComponent stands in for a bean that initializes the database.
type initializerComponent struct {
	component
}

func (initializerComponent) InitializeDatabase(context.Context) (bool, error) {
	return false, nil
}

// dependentComponent stands in for a bean that uses the initialized database.
type dependentComponent struct {
	component
}

func (dependentComponent) DependsOnDatabaseInitialization() {}

func newComponent(c Component) any {
	base := component{id: c.ID}
	switch c.Role {
	case RoleInitializer:
		return &initializerComponent{base}
	case RoleDependent:
		return &dependentComponent{base}
	default:
		return &base
	}
}
