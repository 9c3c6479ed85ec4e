// Package footprint estimates the number of bytes reachable from a Go value.
//
// It is used for structures from third-party libraries that expose no size
// accessor. The walk follows pointers, slices, strings, maps, interfaces and
// channels, including unexported fields, and counts every distinct
// allocation once.
//
// The result is an estimate with these rules:
//   - slices count their capacity, not their length;
//   - maps count entries times (key+value) plus a fixed header, so hash
//     table slack is not included;
//   - channels count their buffer plus a fixed header;
//   - functions and unsafe pointers count only the word that holds them.
package footprint

import (
	"reflect"
	"unsafe"
)

const (
	mapHeaderBytes  = 48
	chanHeaderBytes = 96
)

type visitKey struct {
	addr uintptr
	typ  reflect.Type
}

type walker struct {
	seen map[visitKey]struct{}
}

// Of returns the estimated number of bytes held by v, including the value
// itself.
func Of(v any) uint64 {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	w := walker{seen: make(map[visitKey]struct{})}
	return uint64(rv.Type().Size()) + w.indirect(rv)
}

// Bits is Of in bits.
func Bits(v any) uint64 {
	return Of(v) * 8
}

// first reports whether the allocation at addr of type t has not been
// counted yet, and marks it.
func (w *walker) first(addr uintptr, t reflect.Type) bool {
	k := visitKey{addr: addr, typ: t}
	if _, ok := w.seen[k]; ok {
		return false
	}
	w.seen[k] = struct{}{}
	return true
}

// indirect returns the bytes reachable from v that are not part of v's own
// inline representation.
func (w *walker) indirect(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() || !w.first(v.Pointer(), v.Type()) {
			return 0
		}
		e := v.Elem()
		return uint64(e.Type().Size()) + w.indirect(e)

	case reflect.Slice:
		if v.IsNil() || v.Cap() == 0 || !w.first(v.Pointer(), v.Type()) {
			return 0
		}
		et := v.Type().Elem()
		total := uint64(v.Cap()) * uint64(et.Size())
		if hasIndirect(et) {
			for i := 0; i < v.Len(); i++ {
				total += w.indirect(v.Index(i))
			}
		}
		return total

	case reflect.Array:
		if !hasIndirect(v.Type().Elem()) {
			return 0
		}
		var total uint64
		for i := 0; i < v.Len(); i++ {
			total += w.indirect(v.Index(i))
		}
		return total

	case reflect.String:
		s := v.String()
		if len(s) == 0 || !w.first(uintptr(unsafe.Pointer(unsafe.StringData(s))), v.Type()) {
			return 0
		}
		return uint64(len(s))

	case reflect.Struct:
		var total uint64
		for i := 0; i < v.NumField(); i++ {
			total += w.indirect(v.Field(i))
		}
		return total

	case reflect.Interface:
		if v.IsNil() {
			return 0
		}
		e := v.Elem()
		if e.Kind() == reflect.Pointer {
			return w.indirect(e)
		}
		return uint64(e.Type().Size()) + w.indirect(e)

	case reflect.Map:
		if v.IsNil() || !w.first(v.Pointer(), v.Type()) {
			return 0
		}
		t := v.Type()
		total := uint64(mapHeaderBytes) + uint64(v.Len())*uint64(t.Key().Size()+t.Elem().Size())
		if hasIndirect(t.Key()) || hasIndirect(t.Elem()) {
			it := v.MapRange()
			for it.Next() {
				total += w.indirect(it.Key()) + w.indirect(it.Value())
			}
		}
		return total

	case reflect.Chan:
		if v.IsNil() || !w.first(v.Pointer(), v.Type()) {
			return 0
		}
		return chanHeaderBytes + uint64(v.Cap())*uint64(v.Type().Elem().Size())
	}
	return 0
}

// hasIndirect reports whether values of type t can reference memory
// outside their inline representation.
func hasIndirect(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.String, reflect.Interface, reflect.Map, reflect.Chan:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasIndirect(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasIndirect(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
