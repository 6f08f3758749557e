// Package core provides the fundamental building blocks of the sqltx library.
// This file defines the cursor and row-set contracts that the library
// consumes. Concrete implementations live under driver/ and are supplied by
// the caller; the library assumes nothing beyond this minimal capability set.
package core

import "context"

// Rows is a forward-only iterator over the result of an executed statement.
// It mirrors the shape of pgx.Rows so driver adapters stay thin.
type Rows interface {
	// Next advances to the next row, reporting false when the set is
	// exhausted or an error occurred.
	Next() bool

	// Values returns the column values of the current row in SELECT order.
	Values() ([]any, error)

	// Close releases the resources held by the row set. It is safe to call
	// more than once.
	Close()

	// Err returns the error, if any, that terminated iteration.
	Err() error
}

// Cursor is the connection collaborator every orchestrated operation runs
// through. One cursor corresponds to one connection; concurrent transactions
// require independent cursors, with isolation delegated entirely to the
// underlying database.
type Cursor interface {
	// Execute runs a parametrized statement and returns its rows. For
	// statements without a result set the returned Rows yields no rows.
	Execute(ctx context.Context, sql string, args []any) (Rows, error)

	// ExecuteMany runs the same statement once per argument set, in order.
	ExecuteMany(ctx context.Context, sql string, argSets [][]any) error

	// Begin opens a transaction scope at the given isolation level.
	Begin(ctx context.Context, level IsolationLevel) error

	// Commit makes the work of the current scope durable.
	Commit(ctx context.Context) error

	// Rollback abandons the work of the current scope.
	Rollback(ctx context.Context) error
}

// exec runs a statement through the cursor, discards any rows, and wraps
// failures as DatabaseError.
func exec(ctx context.Context, cur Cursor, sql string, args []any) error {
	rows, err := cur.Execute(ctx, sql, args)
	if err != nil {
		return &DatabaseError{SQL: sql, Cause: err}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return &DatabaseError{SQL: sql, Cause: err}
	}
	return nil
}

// queryOneValue runs a statement expected to yield a single-column row and
// returns that value.
func queryOneValue(ctx context.Context, cur Cursor, sql string, args []any) (any, error) {
	rows, err := cur.Execute(ctx, sql, args)
	if err != nil {
		return nil, &DatabaseError{SQL: sql, Cause: err}
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &DatabaseError{SQL: sql, Cause: err}
		}
		return nil, &DatabaseError{SQL: sql, Cause: errNoRows}
	}
	values, err := rows.Values()
	if err != nil {
		return nil, &DatabaseError{SQL: sql, Cause: err}
	}
	if len(values) != 1 {
		return nil, &DatabaseError{SQL: sql, Cause: errNotOneColumn}
	}
	return values[0], nil
}
