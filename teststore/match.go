package teststore

import "reflect"

// Exact matches an action by deep equality against want.
func Exact[A any](want A) func(A) bool {
	return func(got A) bool {
		return reflect.DeepEqual(got, want)
	}
}

// HasType matches an action whose dynamic type is T. Useful when the action
// union is an interface and a test only cares which case arrived, not its
// payload.
func HasType[A, T any]() func(A) bool {
	return func(got A) bool {
		_, ok := any(got).(T)
		return ok
	}
}
