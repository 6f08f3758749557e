// Package sqldb adapts any database/sql driver to the core.Cursor contract.
// Unlike the pgx-backed cursor, transaction scopes are driven with the
// explicit BEGIN/COMMIT/ROLLBACK statements supplied by the dialect, so any
// backend with plain statement support works without a native transaction
// API.
package sqldb

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/acordia/sqltx/core"
)

//region SQLCursor

// SQLCursor implements core.Cursor on a single pinned database/sql
// connection. One cursor is one connection; concurrent transactions need
// independent cursors.
type SQLCursor struct {
	conn    *sql.Conn
	dialect core.Dialect
	inScope bool
}

var _ core.Cursor = (*SQLCursor)(nil)

// NewSQLCursor pins one connection from db and drives transaction scopes
// with the dialect's statements. A nil dialect defaults to core.SQLite.
func NewSQLCursor(ctx context.Context, db *sql.DB, dialect core.Dialect) (*SQLCursor, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquiring connection")
	}
	if dialect == nil {
		dialect = core.SQLite
	}
	return &SQLCursor{conn: conn, dialect: dialect}, nil
}

// Close returns the pinned connection to the pool. An open scope is rolled
// back first.
func (cursor *SQLCursor) Close(ctx context.Context) error {
	if cursor.inScope {
		_ = cursor.Rollback(ctx)
	}
	return cursor.conn.Close()
}

// Execute runs a parametrized statement and adapts its result set to
// core.Rows.
func (cursor *SQLCursor) Execute(ctx context.Context, sqlQuery string, args []any) (core.Rows, error) {
	rows, err := cursor.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

// ExecuteMany prepares the statement once and executes it per argument set,
// in order.
func (cursor *SQLCursor) ExecuteMany(ctx context.Context, sqlQuery string, argSets [][]any) error {
	if len(argSets) == 0 {
		return nil
	}
	statement, err := cursor.conn.PrepareContext(ctx, sqlQuery)
	if err != nil {
		return err
	}
	defer statement.Close()
	for _, args := range argSets {
		if _, err := statement.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// Begin opens a scope by executing the dialect's begin statement at the
// requested isolation level.
func (cursor *SQLCursor) Begin(ctx context.Context, level core.IsolationLevel) error {
	if cursor.inScope {
		return errors.New("sql cursor already has an open transaction scope")
	}
	if _, err := cursor.conn.ExecContext(ctx, cursor.dialect.BeginSQL(level)); err != nil {
		return err
	}
	cursor.inScope = true
	return nil
}

// Commit makes the open scope durable with the dialect's commit statement.
func (cursor *SQLCursor) Commit(ctx context.Context) error {
	if !cursor.inScope {
		return errors.New("sql cursor has no open transaction scope")
	}
	cursor.inScope = false
	_, err := cursor.conn.ExecContext(ctx, cursor.dialect.CommitSQL())
	return err
}

// Rollback abandons the open scope with the dialect's rollback statement.
// Rolling back with no open scope is a no-op so cleanup paths can call it
// unconditionally.
func (cursor *SQLCursor) Rollback(ctx context.Context) error {
	if !cursor.inScope {
		return nil
	}
	cursor.inScope = false
	_, err := cursor.conn.ExecContext(ctx, cursor.dialect.RollbackSQL())
	return err
}

//endregion

//region sqlRows

// sqlRows adapts *sql.Rows to the positional Values contract of core.Rows.
type sqlRows struct {
	rows    *sql.Rows
	current []any
	err     error
}

var _ core.Rows = (*sqlRows)(nil)

func (r *sqlRows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	columns, err := r.rows.Columns()
	if err != nil {
		r.err = err
		return false
	}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := r.rows.Scan(pointers...); err != nil {
		r.err = err
		return false
	}
	r.current = values
	return true
}

func (r *sqlRows) Values() ([]any, error) {
	if r.current == nil {
		return nil, errors.New("Values called before Next")
	}
	return r.current, nil
}

func (r *sqlRows) Close() { _ = r.rows.Close() }

func (r *sqlRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

//endregion
