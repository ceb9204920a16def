// Package reflector derives stable, human-readable names for Go types. The
// actor layer uses them as routing keys and metric labels, so lookups are
// cached.
package reflector

import (
	"reflect"
	"sync"
)

var (
	mu    sync.RWMutex
	names = make(map[reflect.Type]string)
)

// NameOf returns the qualified type name of x, unwrapping one level of
// pointer, e.g. "github.com/user/repo/pkg.MyMessage". A nil interface yields
// "nil".
func NameOf(x any) string {
	return nameForType(reflect.TypeOf(x))
}

// NameFor returns the qualified type name of T without needing a value.
func NameFor[T any]() string {
	return nameForType(reflect.TypeOf((*T)(nil)).Elem())
}

func nameForType(t reflect.Type) string {
	if t == nil {
		return "nil"
	}

	mu.RLock()
	n, ok := names[t]
	mu.RUnlock()
	if ok {
		return n
	}

	e := t
	if e.Kind() == reflect.Pointer {
		e = e.Elem()
	}
	switch {
	case e.Name() == "":
		// unnamed type: slice, map, anonymous struct
		n = e.String()
	case e.PkgPath() == "":
		// predeclared type: string, int, ...
		n = e.Name()
	default:
		n = e.PkgPath() + "." + e.Name()
	}

	mu.Lock()
	names[t] = n
	mu.Unlock()
	return n
}
