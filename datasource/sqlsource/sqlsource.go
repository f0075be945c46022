// Package sqlsource is a datasource.Source that translates builder calls
// into SQL for SQLite (github.com/mattn/go-sqlite3) or PostgreSQL
// (github.com/lib/pq) through sqlx.
package sqlsource

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/tabula/datasource"
)

// Source executes requests against a SQL database. Mutations return the
// affected rows through RETURNING.
//
// Thread-safety: Source is safe for concurrent use; pooling is left to
// database/sql.
type Source struct {
	db      *sqlx.DB
	dialect Dialect
}

// Open connects to a database and applies dialect settings.
//
// SQLite connections are configured with:
//   - a single connection, so :memory: databases persist and writers do
//     not contend
//   - WAL journal mode and NORMAL synchronous mode
//   - a 5-second busy timeout
//   - case-sensitive LIKE, matching PostgreSQL
func Open(driver, dsn string) (*Source, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(dialect.String(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == SQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	return &Source{db: db, dialect: dialect}, nil
}

// New wraps an open connection. The dialect follows the driver name the
// connection was opened with.
func New(db *sqlx.DB) (*Source, error) {
	dialect, err := DialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}
	return &Source{db: db, dialect: dialect}, nil
}

// Close closes the database connection.
func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying connection.
func (s *Source) DB() *sqlx.DB {
	return s.db
}

// Dialect returns the SQL flavor in use.
func (s *Source) Dialect() Dialect {
	return s.dialect
}

// From implements datasource.Source.
func (s *Source) From(table string) datasource.Builder {
	return datasource.NewRequestBuilder(table, s.execute)
}

// Statements compiles req without executing it, with placeholders rebound
// for the driver.
func (s *Source) Statements(req *datasource.Request) ([]Statement, error) {
	stmts, err := Compile(s.dialect, req)
	if err != nil {
		return nil, err
	}
	for i := range stmts {
		stmts[i].SQL = s.db.Rebind(stmts[i].SQL)
	}
	return stmts, nil
}

func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA case_sensitive_like = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// execute runs every statement of req in one transaction. Errors the
// database reports about the request come back in Response.Error; errors
// reaching the database do not.
func (s *Source) execute(ctx context.Context, req *datasource.Request) (*datasource.Response, error) {
	stmts, err := s.Statements(req)
	if err != nil {
		var dsErr *datasource.Error
		if errors.As(err, &dsErr) {
			return &datasource.Response{Error: dsErr}, nil
		}
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rows []datasource.Row
	for _, stmt := range stmts {
		got, err := queryRows(ctx, tx, stmt)
		if err != nil {
			if dsErr := backendError(err); dsErr != nil {
				return &datasource.Response{Error: dsErr}, nil
			}
			return nil, err
		}
		rows = append(rows, got...)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	if req.Single {
		return datasource.CheckSingle(rows), nil
	}
	if rows == nil {
		rows = []datasource.Row{}
	}
	return &datasource.Response{Rows: rows}, nil
}

func queryRows(ctx context.Context, q sqlx.QueryerContext, stmt Statement) ([]datasource.Row, error) {
	rs, err := q.QueryxContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []datasource.Row
	for rs.Next() {
		row := make(map[string]any)
		if err := rs.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	return out, rs.Err()
}

// backendError converts a driver error into the backend error shape, or
// returns nil for errors that are not about the request.
func backendError(err error) *datasource.Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &datasource.Error{
			Code:    string(pqErr.Code),
			Message: pqErr.Message,
			Details: pqErr.Detail,
			Hint:    pqErr.Hint,
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		code := "SQLITE_" + strconv.Itoa(int(liteErr.ExtendedCode))
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			code = "23505"
		case sqlite3.ErrConstraintNotNull:
			code = "23502"
		case sqlite3.ErrConstraintForeignKey:
			code = "23503"
		}
		return &datasource.Error{Code: code, Message: liteErr.Error()}
	}
	return nil
}
