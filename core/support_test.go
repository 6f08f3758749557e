package core

import (
	"context"
	"strings"
)

// stubRows and stubCursor are minimal in-package fakes for exercising
// cursor-facing code without a database. The full-featured mock lives in
// driver/mockdb; this one avoids the import cycle.
type stubRows struct {
	rows     [][]any
	position int
}

func (r *stubRows) Next() bool {
	if r.position >= len(r.rows) {
		return false
	}
	r.position++
	return true
}

func (r *stubRows) Values() ([]any, error) { return r.rows[r.position-1], nil }
func (r *stubRows) Close()                 {}
func (r *stubRows) Err() error             { return nil }

type stubCursor struct {
	executed []string
	args     [][]any
	handler  func(sql string, args []any) ([][]any, error)

	begins    int
	commits   int
	rollbacks int
}

func (c *stubCursor) Execute(_ context.Context, sql string, args []any) (Rows, error) {
	c.executed = append(c.executed, sql)
	c.args = append(c.args, args)
	if c.handler != nil {
		rows, err := c.handler(sql, args)
		if err != nil {
			return nil, err
		}
		return &stubRows{rows: rows}, nil
	}
	return &stubRows{}, nil
}

func (c *stubCursor) ExecuteMany(ctx context.Context, sql string, argSets [][]any) error {
	for _, args := range argSets {
		if _, err := c.Execute(ctx, sql, args); err != nil {
			return err
		}
	}
	return nil
}

func (c *stubCursor) Begin(context.Context, IsolationLevel) error {
	c.begins++
	return nil
}

func (c *stubCursor) Commit(context.Context) error {
	c.commits++
	return nil
}

func (c *stubCursor) Rollback(context.Context) error {
	c.rollbacks++
	return nil
}

func (c *stubCursor) executedContaining(fragment string) []string {
	var matched []string
	for _, sql := range c.executed {
		if strings.Contains(sql, fragment) {
			matched = append(matched, sql)
		}
	}
	return matched
}
