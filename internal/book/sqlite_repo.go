package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepo runs the book queries on a connection acquired per call.
type SQLiteRepo struct {
	conns   ConnProvider
	table   Table
	timeout time.Duration
}

func NewSQLiteRepo(conns ConnProvider, table Table, timeout time.Duration) *SQLiteRepo {
	return &SQLiteRepo{conns: conns, table: table, timeout: timeout}
}

func (r *SQLiteRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// ListLatest does no clamping; callers validate limit.
func (r *SQLiteRepo) ListLatest(ctx context.Context, limit int) ([]Record, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	conn, err := r.conns.Acquire(ctx)
	if err != nil {
		return nil, storeError("acquire connection", err)
	}
	defer r.conns.Release(conn)

	cols, err := r.columns(ctx, conn)
	if err != nil {
		return nil, err
	}
	q, err := r.table.listLatestQuery(limit, cols)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryxContext(ctx, q.text, q.args...)
	if err != nil {
		return nil, storeError("list latest books", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows, limit)
	if err != nil {
		return nil, storeError("list latest books", err)
	}
	return records, nil
}

func (r *SQLiteRepo) GetByISBN(ctx context.Context, isbn string) (Record, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	conn, err := r.conns.Acquire(ctx)
	if err != nil {
		return Record{}, storeError("acquire connection", err)
	}
	defer r.conns.Release(conn)

	cols, err := r.columns(ctx, conn)
	if err != nil {
		return Record{}, err
	}
	q, err := r.table.lookupQuery(isbn, cols)
	if err != nil {
		return Record{}, err
	}

	rows, err := conn.QueryxContext(ctx, q.text, q.args...)
	if err != nil {
		return Record{}, storeError("get book by isbn", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows, 1)
	if err != nil {
		return Record{}, storeError("get book by isbn", err)
	}
	if len(records) == 0 {
		return Record{}, ErrNotFound
	}
	return records[0], nil
}

// columns reads the table layout on conn.
func (r *SQLiteRepo) columns(ctx context.Context, conn *sqlx.Conn) ([]column, error) {
	q, err := r.table.columnsQuery()
	if err != nil {
		return nil, err
	}
	var cols []column
	if err := conn.SelectContext(ctx, &cols, q.text, q.args...); err != nil {
		return nil, storeError("read table columns", err)
	}
	return cols, nil
}

func scanRecords(rows *sqlx.Rows, sizeHint int) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := make([]Record, 0, min(sizeHint, 256))
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, NewRecord(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

// storeError wraps err, adding ErrStoreUnavailable when a retry could succeed.
func storeError(op string, err error) error {
	if retryable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN:
			return true
		}
	}
	return false
}
