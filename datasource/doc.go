// Package datasource defines the capability contract of a tabular backend:
// a table-scoped, chainable filter builder that resolves to rows or a
// backend-reported error.
//
// Builders are single-use chains. Source.From hands out a fresh one per
// call, and Execute separates transport failures (the returned error) from
// failures the backend reports about the request (Response.Error).
//
// Implementations live in subpackages:
//   - memsource: an in-memory table store for tests and local runs
//   - sqlsource: SQLite and PostgreSQL through database/sql
//   - recorder: captures the call sequence without executing anything
package datasource
