// Package module defines the minimal contract for a modkit module and
// how callers pull typed ports out of it
package module

import (
	"fmt"
	"reflect"
)

// Module defines the minimal contract used by modkit.
// Ports returns either a single port or a struct bundle of ports
type Module interface {
	Ports() any
	Name() string
}

// PortsOf finds a T in m.Ports(). The value itself is tried first, then
// every exported, non-nil field of a struct or pointer-to-struct bundle
func PortsOf[T any](m Module) (T, bool) {
	var zero T
	p := m.Ports()
	if p == nil {
		return zero, false
	}
	if v, ok := p.(T); ok {
		return v, true
	}

	rv := reflect.ValueOf(p)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return zero, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return zero, false
	}
	for i := range rv.NumField() {
		f := rv.Field(i)
		if !f.CanInterface() || isNil(f) {
			continue
		}
		if v, ok := f.Interface().(T); ok {
			return v, true
		}
	}
	return zero, false
}

// MustPortsOf is PortsOf for wiring code, where a missing port is a bug
func MustPortsOf[T any](m Module) T {
	if v, ok := PortsOf[T](m); ok {
		return v
	}
	panic(fmt.Sprintf("module %s exposes no %s", m.Name(), reflect.TypeFor[T]()))
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
