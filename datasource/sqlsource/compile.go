package sqlsource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/roach88/tabula/cond"
	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/filterexpr"
)

// Dialect selects the SQL flavor.
type Dialect int

const (
	// SQLite targets github.com/mattn/go-sqlite3.
	SQLite Dialect = iota

	// Postgres targets github.com/lib/pq.
	Postgres
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	}
	return 0, fmt.Errorf("unsupported driver %q", driver)
}

// String returns the dialect name.
func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

// Statement is one parameterized SQL statement with ? placeholders.
type Statement struct {
	SQL  string
	Args []any
}

// Compile converts a request into the statements that carry it out. Insert
// and upsert produce one statement per row so each row can use its own
// column set; everything else produces exactly one.
//
// All values are parameterized, never interpolated. Identifiers are
// double-quoted.
func Compile(d Dialect, req *datasource.Request) ([]Statement, error) {
	c := &sqlCompiler{dialect: d}
	switch req.Action {
	case datasource.MethodSelect:
		return c.compileSelect(req)
	case datasource.MethodInsert:
		return c.compileInsert(req)
	case datasource.MethodUpdate:
		return c.compileUpdate(req)
	case datasource.MethodUpsert:
		return c.compileUpsert(req)
	case datasource.MethodDelete:
		return c.compileDelete(req)
	}
	return nil, fmt.Errorf("unsupported action %q", req.Action)
}

type sqlCompiler struct {
	dialect Dialect
}

func (c *sqlCompiler) compileSelect(req *datasource.Request) ([]Statement, error) {
	where, args, err := c.compileWhere(req)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", columnList(req.Columns), quoteIdent(req.Table), where)

	if len(req.Order) > 0 {
		terms := make([]string, len(req.Order))
		for i, o := range req.Order {
			dir, nulls := "DESC", "NULLS LAST"
			if o.Ascending {
				dir = "ASC"
			}
			if o.NullsFirst {
				nulls = "NULLS FIRST"
			}
			terms[i] = fmt.Sprintf("%s %s %s", quoteIdent(o.Field), dir, nulls)
		}
		sb.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}

	offset, max := req.Window()
	switch {
	case max >= 0:
		sb.WriteString(" LIMIT ?")
		args = append(args, max)
	case offset > 0 && c.dialect == SQLite:
		// SQLite only accepts OFFSET after a LIMIT.
		sb.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, offset)
	}

	return []Statement{{SQL: sb.String(), Args: args}}, nil
}

func (c *sqlCompiler) compileInsert(req *datasource.Request) ([]Statement, error) {
	out := make([]Statement, 0, len(req.Rows))
	for _, row := range req.Rows {
		sql, args := insertInto(req.Table, row)
		out = append(out, Statement{SQL: sql + " RETURNING *", Args: args})
	}
	return out, nil
}

func (c *sqlCompiler) compileUpdate(req *datasource.Request) ([]Statement, error) {
	if len(req.Values) == 0 {
		return nil, &datasource.Error{Code: "PGRST102", Message: "empty update body"}
	}
	keys := sortedKeys(req.Values)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		sets[i] = quoteIdent(k) + " = ?"
		args = append(args, req.Values[k])
	}

	where, whereArgs, err := c.compileWhere(req)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *", quoteIdent(req.Table), strings.Join(sets, ", "), where)
	return []Statement{{SQL: sql, Args: append(args, whereArgs...)}}, nil
}

// compileUpsert turns each row into INSERT ... ON CONFLICT DO UPDATE. The
// request's filters guard the update branch, so existing rows that fail
// them are left untouched and not returned.
func (c *sqlCompiler) compileUpsert(req *datasource.Request) ([]Statement, error) {
	target := req.OnConflict
	if len(target) == 0 {
		target = []string{"id"}
	}
	quoted := make([]string, len(target))
	for i, col := range target {
		quoted[i] = quoteIdent(col)
	}

	where, whereArgs, err := c.compileWhere(req)
	if err != nil {
		return nil, err
	}

	out := make([]Statement, 0, len(req.Rows))
	for _, row := range req.Rows {
		sql, args := insertInto(req.Table, row)

		var updates []string
		for _, k := range sortedKeys(row) {
			if !contains(target, k) {
				updates = append(updates, fmt.Sprintf("%s = excluded.%s", quoteIdent(k), quoteIdent(k)))
			}
		}
		if len(updates) == 0 {
			// Nothing to change: touch a conflict column so the existing
			// row is still returned.
			first := quoteIdent(target[0])
			updates = []string{fmt.Sprintf("%s = excluded.%s", first, first)}
		}

		sql += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s%s RETURNING *",
			strings.Join(quoted, ", "), strings.Join(updates, ", "), where)
		out = append(out, Statement{SQL: sql, Args: append(args, whereArgs...)})
	}
	return out, nil
}

func (c *sqlCompiler) compileDelete(req *datasource.Request) ([]Statement, error) {
	where, args, err := c.compileWhere(req)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("DELETE FROM %s%s RETURNING *", quoteIdent(req.Table), where)
	return []Statement{{SQL: sql, Args: args}}, nil
}

// compileWhere renders every filter and every Or disjunction as one
// " WHERE ..." conjunction, or "" when there are none.
func (c *sqlCompiler) compileWhere(req *datasource.Request) (string, []any, error) {
	ors, err := req.Groups()
	if err != nil {
		return "", nil, err
	}

	var parts []string
	var args []any
	for _, cl := range req.Filters {
		sql, a := c.compileClause(cl)
		parts = append(parts, sql)
		args = append(args, a...)
	}
	for _, groups := range ors {
		branches := make([]string, 0, len(groups))
		for _, g := range groups {
			conj := make([]string, 0, len(g))
			for _, cl := range g {
				sql, a := c.compileClause(cl)
				conj = append(conj, sql)
				args = append(args, a...)
			}
			branches = append(branches, "("+strings.Join(conj, " AND ")+")")
		}
		if len(branches) == 0 {
			continue
		}
		parts = append(parts, "("+strings.Join(branches, " OR ")+")")
	}

	if len(parts) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (c *sqlCompiler) compileClause(cl filterexpr.Clause) (string, []any) {
	sql, args := c.compilePredicate(cl)
	if cl.Not {
		sql = "NOT (" + sql + ")"
	}
	return sql, args
}

func (c *sqlCompiler) compilePredicate(cl filterexpr.Clause) (string, []any) {
	col := quoteIdent(cl.Field)
	switch cl.Op {
	case cond.OpIs:
		switch cl.Value {
		case true:
			return col + " IS TRUE", nil
		case false:
			return col + " IS FALSE", nil
		}
		return col + " IS NULL", nil
	case cond.OpIn:
		values := cond.AsList(cl.Value)
		if len(values) == 0 {
			return "1 = 0", nil
		}
		if c.dialect == Postgres {
			return col + " = ANY(?)", []any{pq.Array(values)}
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return col + " IN (" + marks + ")", values
	case cond.OpLike:
		return col + " LIKE ?", []any{cond.Format(cl.Value)}
	case cond.OpILike:
		if c.dialect == Postgres {
			return col + " ILIKE ?", []any{cond.Format(cl.Value)}
		}
		return "LOWER(" + col + ") LIKE LOWER(?)", []any{cond.Format(cl.Value)}
	}
	return fmt.Sprintf("%s %s ?", col, comparison[cl.Op]), []any{cl.Value}
}

var comparison = map[cond.Op]string{
	cond.OpEq:  "=",
	cond.OpNeq: "<>",
	cond.OpGt:  ">",
	cond.OpGte: ">=",
	cond.OpLt:  "<",
	cond.OpLte: "<=",
}

func insertInto(table string, row datasource.Row) (string, []any) {
	if len(row) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(table)), nil
	}
	keys := sortedKeys(row)
	cols := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = quoteIdent(k)
		args[i] = row[k]
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(cols, ", "), marks), args
}

// columnList renders a select column list. "*" and "" select everything.
func columnList(columns string) string {
	columns = strings.TrimSpace(columns)
	if columns == "" || columns == "*" {
		return "*"
	}
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = quoteIdent(strings.TrimSpace(p))
	}
	return strings.Join(parts, ", ")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sortedKeys(row datasource.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
