// Package mockdb provides an in-memory scripted cursor for tests. It records
// every executed statement and serves rows from registered handlers instead
// of a real database.
package mockdb

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/acordia/sqltx/core"
)

//region MockCursor

// Call is one recorded statement execution.
type Call struct {
	SQL  string
	Args []any
}

// Handler produces the rows a matched statement returns. Returning an error
// simulates a database failure.
type Handler func(sql string, args []any) ([][]any, error)

type route struct {
	substring string
	handler   Handler
}

// MockCursor implements core.Cursor entirely in memory. Statements are
// matched against registered handlers by substring, in registration order;
// unmatched statements succeed with an empty row set.
type MockCursor struct {
	mutex  sync.Mutex
	calls  []Call
	routes []route

	begins    int
	commits   int
	rollbacks int
	inScope   bool
}

var _ core.Cursor = (*MockCursor)(nil)

// NewMockCursor creates an empty scripted cursor.
func NewMockCursor() *MockCursor {
	return &MockCursor{}
}

// Handle registers a handler for statements containing the given substring.
func (cursor *MockCursor) Handle(substring string, handler Handler) {
	cursor.mutex.Lock()
	defer cursor.mutex.Unlock()
	cursor.routes = append(cursor.routes, route{substring: substring, handler: handler})
}

// HandleRows registers a handler that always returns the given rows.
func (cursor *MockCursor) HandleRows(substring string, rows ...[]any) {
	cursor.Handle(substring, func(string, []any) ([][]any, error) {
		return rows, nil
	})
}

// HandleError registers a handler that always fails with err.
func (cursor *MockCursor) HandleError(substring string, err error) {
	cursor.Handle(substring, func(string, []any) ([][]any, error) {
		return nil, err
	})
}

// Calls returns the recorded statements in execution order.
func (cursor *MockCursor) Calls() []Call {
	cursor.mutex.Lock()
	defer cursor.mutex.Unlock()
	return append([]Call(nil), cursor.calls...)
}

// ExecutedSQL returns just the SQL text of every recorded statement.
func (cursor *MockCursor) ExecutedSQL() []string {
	calls := cursor.Calls()
	sqlList := make([]string, 0, len(calls))
	for _, call := range calls {
		sqlList = append(sqlList, call.SQL)
	}
	return sqlList
}

// Begins reports how many scopes were opened.
func (cursor *MockCursor) Begins() int { return cursor.counter(&cursor.begins) }

// Commits reports how many scopes were committed.
func (cursor *MockCursor) Commits() int { return cursor.counter(&cursor.commits) }

// Rollbacks reports how many scopes were rolled back.
func (cursor *MockCursor) Rollbacks() int { return cursor.counter(&cursor.rollbacks) }

// InScope reports whether a scope is currently open.
func (cursor *MockCursor) InScope() bool {
	cursor.mutex.Lock()
	defer cursor.mutex.Unlock()
	return cursor.inScope
}

func (cursor *MockCursor) counter(field *int) int {
	cursor.mutex.Lock()
	defer cursor.mutex.Unlock()
	return *field
}

func (cursor *MockCursor) dispatch(sqlQuery string, args []any) ([][]any, error) {
	cursor.mutex.Lock()
	cursor.calls = append(cursor.calls, Call{SQL: sqlQuery, Args: append([]any(nil), args...)})
	routes := cursor.routes
	cursor.mutex.Unlock()

	for _, r := range routes {
		if strings.Contains(sqlQuery, r.substring) {
			return r.handler(sqlQuery, args)
		}
	}
	return nil, nil
}

// Execute records the statement and serves the rows of the first matching
// handler.
func (cursor *MockCursor) Execute(_ context.Context, sqlQuery string, args []any) (core.Rows, error) {
	rows, err := cursor.dispatch(sqlQuery, args)
	if err != nil {
		return nil, err
	}
	return &mockRows{rows: rows}, nil
}

// ExecuteMany records one execution per argument set.
func (cursor *MockCursor) ExecuteMany(ctx context.Context, sqlQuery string, argSets [][]any) error {
	for _, args := range argSets {
		if _, err := cursor.dispatch(sqlQuery, args); err != nil {
			return err
		}
	}
	return nil
}

// Begin opens a scope, failing when one is already open.
func (cursor *MockCursor) Begin(_ context.Context, _ core.IsolationLevel) error {
	cursor.mutex.Lock()
	defer cursor.mutex.Unlock()
	if cursor.inScope {
		return errors.New("mock cursor already has an open transaction scope")
	}
	cursor.inScope = true
	cursor.begins++
	return nil
}

// Commit closes the open scope.
func (cursor *MockCursor) Commit(_ context.Context) error {
	cursor.mutex.Lock()
	defer cursor.mutex.Unlock()
	if !cursor.inScope {
		return errors.New("mock cursor has no open transaction scope")
	}
	cursor.inScope = false
	cursor.commits++
	return nil
}

// Rollback closes the open scope. Rolling back with no open scope is a no-op
// so cleanup paths can call it unconditionally.
func (cursor *MockCursor) Rollback(_ context.Context) error {
	cursor.mutex.Lock()
	defer cursor.mutex.Unlock()
	if cursor.inScope {
		cursor.inScope = false
		cursor.rollbacks++
	}
	return nil
}

//endregion

//region mockRows

type mockRows struct {
	rows     [][]any
	position int
}

var _ core.Rows = (*mockRows)(nil)

func (r *mockRows) Next() bool {
	if r.position >= len(r.rows) {
		return false
	}
	r.position++
	return true
}

func (r *mockRows) Values() ([]any, error) {
	if r.position == 0 || r.position > len(r.rows) {
		return nil, errors.New("mock rows: Values called without a current row")
	}
	return r.rows[r.position-1], nil
}

func (r *mockRows) Close() {}

func (r *mockRows) Err() error { return nil }

//endregion
