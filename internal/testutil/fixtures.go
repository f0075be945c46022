package testutil

import (
	"time"

	"github.com/roach88/tabula/datasource"
)

// Epoch is the fixed instant fixtures are built around.
var Epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Users returns a fresh copy of the users fixture. u4 is soft-deleted.
func Users() []datasource.Row {
	return []datasource.Row{
		{"id": "u1", "name": "Ada", "email": "ada@example.com", "role": "admin", "age": int64(36), "tenant_id": "t1", "verified": true, "deleted": nil},
		{"id": "u2", "name": "Brian", "email": "brian@example.com", "role": "moderator", "age": int64(29), "tenant_id": "t1", "verified": false, "deleted": nil},
		{"id": "u3", "name": "Chen", "email": "CHEN@Example.com", "role": "member", "age": int64(17), "tenant_id": "t2", "verified": true, "deleted": nil},
		{"id": "u4", "name": "Dana", "email": "dana@example.com", "role": "admin", "age": int64(41), "tenant_id": "t2", "verified": nil, "deleted": Epoch},
	}
}

// Posts returns a fresh copy of the posts fixture.
func Posts() []datasource.Row {
	return []datasource.Row{
		{"id": "p1", "tenant_id": "t1", "status": "draft", "title": "Hello", "views": int64(10)},
		{"id": "p2", "tenant_id": "t1", "status": "published", "title": "World", "views": int64(250)},
		{"id": "p3", "tenant_id": "t2", "status": "published", "title": "Other tenant", "views": int64(5)},
		{"id": "p4", "tenant_id": "t1", "status": "archived", "title": "Old", "views": nil},
	}
}
