// Package query implements immutable, lazily executed queries over a
// datasource.Source, their mapped views and mutation wrappers.
//
// # Immutability
//
// Every chain method returns a new Query; the receiver is never modified,
// so queries derived from a common ancestor can run concurrently. Nothing
// is cached: each terminal call compiles and executes afresh.
//
// # Terminals
//
// One, Many and First return absence as option.None or an empty slice.
// RequireOne, RequireMany and RequireFirst turn absence into an *Error with
// ErrCodeNotFound. Backend-reported failures carry ErrCodeBackend and rows
// that fail to decode carry ErrCodeDecode. A source that fails to resolve
// at all, including a panic inside a builder, yields ErrCodeUnexpected.
//
// # Usage
//
//	q := query.New[User](src, "users", query.WithSoftDelete("deleted")).
//	    Where(cond.Where(cond.P("tenant_id", "t1"))).
//	    Or(cond.Where(cond.P("role", "admin"))).
//	    Order("age", datasource.OrderOptions{Ascending: true}).
//	    Limit(20)
//
//	users, err := q.Many(ctx)
//	names, err := query.Map(q, func(u User) string { return u.Name }).Many(ctx)
package query
