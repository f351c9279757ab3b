package container

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

func createInstance(beanType reflect.Type) (any, error) {
	switch beanType.Kind() {
	case reflect.Ptr:
		return reflect.New(beanType.Elem()).Interface(), nil
	case reflect.Struct:
		// All created instances are pointers for consistency.
		return reflect.New(beanType).Interface(), nil
	default:
		return nil, fmt.Errorf("beanType is not supported: %v", beanType.Kind())
	}
}

// appendUnique appends the ids not yet present in set, preserving insertion order.
func appendUnique(set []string, ids ...string) []string {
	for _, id := range ids {
		if !slices.Contains(set, id) {
			set = append(set, id)
		}
	}
	return set
}

func injectIntoStruct(receiverBean bean, depBean bean, chain []string) error {
	// Local guard for direct/self cycles; injectDependencies performs the full DFS detection.
	if slices.Contains(chain, depBean.id) {
		return fmt.Errorf("dependency cycle detected: %s -> %s", strings.Join(chain, pathSep), depBean.id)
	}

	rv := reflect.ValueOf(receiverBean.instance)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("injectIntoStruct: receiver bean '%s' is not a struct", receiverBean.id)
	}

	depVal := reflect.ValueOf(depBean.instance)
	depType := depBean.beanType

	for i := 0; i < rv.NumField(); i++ {
		sf := rv.Type().Field(i)
		tagVal := sf.Tag.Get(string(inject))
		if tagVal == emptyString || normalizeID(tagVal) != depBean.id {
			continue
		}

		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}
		assign(fv, depVal, depType)
	}

	return nil
}

// assign sets field fv from the dependency value, normalising pointer/value
// combinations. Incompatible types leave the field untouched.
func assign(fv reflect.Value, depVal reflect.Value, depType reflect.Type) {
	fieldType := fv.Type()

	switch {
	case fieldType == depType:
		// Zero-sized structs share one address; allocate a fresh one so distinct
		// registrations stay distinct after injection.
		if depType.Kind() == reflect.Ptr && depType.Elem().Kind() == reflect.Struct && depType.Elem().NumField() == 0 {
			fv.Set(reflect.New(depType.Elem()))
			return
		}
		fv.Set(depVal)
	case fieldType.Kind() == reflect.Interface:
		if depVal.Type().Implements(fieldType) {
			fv.Set(depVal)
		}
	case fieldType.Kind() == reflect.Ptr && depType.Kind() == reflect.Struct && fieldType.Elem() == depType:
		ptr := reflect.New(depType)
		ptr.Elem().Set(depVal)
		fv.Set(ptr)
	case fieldType.Kind() == reflect.Struct && depType.Kind() == reflect.Ptr && depType.Elem() == fieldType:
		fv.Set(depVal.Elem())
	case fieldType.Kind() == reflect.Ptr && depType.Kind() == reflect.Ptr && fieldType.Elem() == depType.Elem():
		fv.Set(depVal)
	}
}
