// Package core provides the fundamental building blocks of the sqltx library.
// This file defines query results: record lists bound to an owned query
// instance, supporting clear-and-refetch refresh.
package core

import "context"

// QueryResult couples a record list with one query instance. The query is
// owned, so its context-bound parameter fields can be set externally before
// execution; Refresh clears the list and repopulates it from the query,
// materializing rows into the query's declared result record type.
type QueryResult struct {
	*RecordList
	query     *Query
	isolation IsolationLevel
}

// QueryResultOption customizes a query result declaration.
type QueryResultOption func(*QueryResult)

// ResultIsolation sets the isolation level Refresh opens its scope with.
func ResultIsolation(level IsolationLevel) QueryResultOption {
	return func(qr *QueryResult) { qr.isolation = level }
}

// NewQueryResult binds a fresh record list to its own copy of q.
func NewQueryResult(q *Query, opts ...QueryResultOption) *QueryResult {
	qr := &QueryResult{
		RecordList: q.ResultSchema().NewList(),
		query:      q.Copy(),
		isolation:  DefaultIsolation,
	}
	for _, opt := range opts {
		opt(qr)
	}
	return qr
}

// Query returns the owned query instance for external parameter binding.
func (qr *QueryResult) Query() *Query { return qr.query }

// SetContext forwards context values to the owned query's parameter fields.
func (qr *QueryResult) SetContext(tc *Context) error {
	return qr.query.SetContext(tc)
}

// ContextSelectStatement binds the context into the owned query and returns
// its statement. The query text is fixed, so allowUnlimited has no effect
// here; the caller opted into whatever shape the query declares.
func (qr *QueryResult) ContextSelectStatement(tc *Context, d Dialect, _ bool) (Statement, error) {
	if err := qr.query.SetContext(tc); err != nil {
		return Statement{}, err
	}
	return qr.query.Statement(d), nil
}

// appendRow materializes one fetched row into the result record type.
func (qr *QueryResult) appendRow(values []any) error {
	return qr.AppendValues(values...)
}

// Refresh clears the contained records, executes the owned query inside a
// fresh transaction scope, and stores the returned rows.
func (qr *QueryResult) Refresh(ctx context.Context, cur Cursor, d Dialect) error {
	qr.Clear()
	return withScope(ctx, cur, qr.isolation, func() error {
		rows, err := qr.query.Execute(ctx, cur, d)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return err
			}
			if err := qr.appendRow(values); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}
