package book

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // registers the sqlite3 dialect
)

const dialectSQLite = "sqlite3"

// ErrBuildingQuery is returned when a statement cannot be rendered.
var ErrBuildingQuery = errors.New("building query failed")

// Table names the books table and the columns the queries rely on. Values
// come from configuration and are quoted as identifiers, never bound.
type Table struct {
	Name              string
	ISBNColumn        string
	DescriptionColumn string
	DateColumn        string
}

type sqlQuery struct {
	text string
	args []any
}

type column struct {
	Name string `db:"name"`
	Type string `db:"type"`
}

// parsedAsTime reports whether the driver turns text in this column into a
// time.Time. modernc.org/sqlite does so for these declared types only.
func (c column) parsedAsTime() bool {
	switch strings.ToUpper(c.Type) {
	case "DATE", "DATETIME", "TIMESTAMP":
		return true
	}
	return false
}

// columnsQuery lists the table's columns in declaration order.
func (t Table) columnsQuery() (sqlQuery, error) {
	stmt := goqu.Dialect(dialectSQLite).
		From(goqu.L("pragma_table_info(?)", t.Name)).
		Select("name", "type").
		Order(goqu.C("cid").Asc()).
		Prepared(true)

	return render(stmt)
}

// selection returns nil, meaning SELECT *, unless some column is date
// typed. Those are wrapped in a unary plus, which keeps the stored value
// but drops the declared type, so the text comes back as stored.
func selection(cols []column) []any {
	if !slices.ContainsFunc(cols, column.parsedAsTime) {
		return nil
	}
	out := make([]any, len(cols))
	for i, c := range cols {
		if c.parsedAsTime() {
			out[i] = goqu.L("+?", goqu.C(c.Name)).As(c.Name)
		} else {
			out[i] = goqu.C(c.Name)
		}
	}
	return out
}

func (t Table) from(cols []column) *goqu.SelectDataset {
	stmt := goqu.Dialect(dialectSQLite).From(t.Name)
	if sel := selection(cols); sel != nil {
		stmt = stmt.Select(sel...)
	}
	return stmt
}

// listLatestQuery selects described rows, newest first. Equal dates are
// ordered by ISBN so pages are stable.
func (t Table) listLatestQuery(limit int, cols []column) (sqlQuery, error) {
	if limit < 0 {
		return sqlQuery{}, fmt.Errorf("%w: negative limit %d", ErrBuildingQuery, limit)
	}
	stmt := t.from(cols).
		Where(goqu.C(t.DescriptionColumn).IsNotNull()).
		Order(goqu.C(t.DateColumn).Desc(), goqu.C(t.ISBNColumn).Asc()).
		Limit(uint(limit)).
		Prepared(true)

	return render(stmt)
}

// lookupQuery matches the stored ISBN with separators stripped at query
// time. Duplicates resolve to the lowest rowid.
func (t Table) lookupQuery(isbn string, cols []column) (sqlQuery, error) {
	stored := goqu.Func("REPLACE", goqu.C(t.ISBNColumn), ISBNSeparator, "")
	stmt := t.from(cols).
		Where(stored.Eq(isbn)).
		Order(goqu.L("rowid").Asc()).
		Limit(1).
		Prepared(true)

	return render(stmt)
}

func render(stmt *goqu.SelectDataset) (sqlQuery, error) {
	text, args, err := stmt.ToSQL()
	if err != nil {
		return sqlQuery{}, errors.Join(ErrBuildingQuery, err)
	}
	return sqlQuery{text: text, args: args}, nil
}
