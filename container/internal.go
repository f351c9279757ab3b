package container

import (
	"fmt"
	"reflect"
	"strings"
)

// checkForDependency analyzes beanType for `di.inject` tagged fields and records each as a
// required dependency. Only exported pointer-to-struct, string and interface fields are considered.
// Caller must hold regMu.
func (c *Container) checkForDependency(beanType reflect.Type) (bool, []string) {
	if beanType.Kind() != reflect.Ptr || beanType.Elem().Kind() != reflect.Struct {
		return false, nil
	}

	dependencyIDs := make([]string, 0)
	elem := beanType.Elem()
	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)
		tagName, exists := field.Tag.Lookup(string(inject))
		if !exists || !field.IsExported() {
			continue
		}
		tagName = normalizeID(tagName)

		var required reflect.Type
		switch {
		case field.Type.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Struct:
			required = field.Type.Elem()
		case field.Type.Kind() == reflect.String, field.Type.Kind() == reflect.Interface:
			required = field.Type
		default:
			continue
		}
		c.requiredDependency[tagName] = required
		dependencyIDs = append(dependencyIDs, tagName)
	}

	return len(dependencyIDs) > 0, dependencyIDs
}

// resolveDependency returns the bean registered as depBeanID, synthesising one from the
// environment for missing string dependencies. Caller must hold regMu.
func (c *Container) resolveDependency(depBeanID string) (bean, bool) {
	if depBean, ok := c.registeredBeans[depBeanID]; ok {
		return depBean, true
	}
	expectedType, ok := c.requiredDependency[depBeanID]
	if !ok {
		return bean{}, false
	}
	val, found := c.lookupLiteral(depBeanID, expectedType)
	if !found {
		return bean{}, false
	}
	// Cache the literal so downstream injection treats it like any other bean.
	depBean := bean{id: depBeanID, instance: val, beanType: expectedType, singleton: true}
	c.registeredBeans[depBeanID] = depBean
	return depBean, true
}

func (c *Container) injectDependencies() error {
	visited := make(map[string]bool) // fully processed
	onPath := make(map[string]bool)  // nodes in the current recursion stack
	path := make([]string, 0, 16)    // ordered path for clear errors

	cyclePath := func(last string) string {
		return strings.Join(append(append([]string{}, path...), last), pathSep)
	}

	var visit func(id string) error
	visit = func(id string) error {
		bn, ok := c.registeredBeans[id]
		if !ok {
			return fmt.Errorf("injectDependencies: receiver bean '%s' not found", id)
		}

		if onPath[id] {
			return fmt.Errorf("dependency cycle detected: %s", cyclePath(id))
		}
		if visited[id] {
			return nil
		}

		onPath[id] = true
		path = append(path, id)

		if bn.hasDependencies {
			if bn.instance == nil {
				return fmt.Errorf("injectDependencies: receiver bean '%s' is nil", bn.id)
			}

			for _, depBeanID := range bn.dependencies {
				depBean, ok := c.resolveDependency(depBeanID)
				if !ok {
					return fmt.Errorf("injectDependencies: dependency bean '%s' for '%s' receiver bean not found", depBeanID, bn.id)
				}

				// Recurse into the dependency first to detect indirect cycles and ensure its deps are injected.
				if err := visit(depBeanID); err != nil {
					return err
				}

				if depBean.instance == nil {
					return fmt.Errorf("injectDependencies: dependency bean '%s' for '%s' receiver bean not instantiated", depBeanID, bn.id)
				}

				if err := injectIntoStruct(bn, depBean, append([]string{}, path...)); err != nil {
					return fmt.Errorf("injectDependencies: %w", err)
				}
				bn = c.registeredBeans[id]
			}
		}

		onPath[id] = false
		path = path[:len(path)-1]
		visited[id] = true
		return nil
	}

	for _, id := range c.beanIDs() {
		if err := visit(id); err != nil {
			return err
		}
	}

	return nil
}
