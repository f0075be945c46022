// Package option adapts github.com/samber/mo optional values to the
// query API: constructors, cross-type mapping and the first-row helper the
// terminals use.
package option

import "github.com/samber/mo"

// Option holds either a value (Some) or nothing (None). The zero value is
// None.
type Option[T any] = mo.Option[T]

// Some wraps v.
func Some[T any](v T) Option[T] {
	return mo.Some(v)
}

// None returns an empty Option.
func None[T any]() Option[T] {
	return mo.None[T]()
}

// Filter returns o if it holds a value satisfying pred, otherwise None.
func Filter[T any](o Option[T], pred func(T) bool) Option[T] {
	return o.Map(func(v T) (T, bool) {
		return v, pred(v)
	})
}

// Map applies fn to the value of o, if any.
func Map[T, U any](o Option[T], fn func(T) U) Option[U] {
	v, ok := o.Get()
	if !ok {
		return mo.None[U]()
	}
	return mo.Some(fn(v))
}

// FromSlice returns the first element of s, or None.
func FromSlice[T any](s []T) Option[T] {
	var first T
	if len(s) > 0 {
		first = s[0]
	}
	return mo.TupleToOption(first, len(s) > 0)
}
