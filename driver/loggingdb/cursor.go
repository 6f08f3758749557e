// Package loggingdb wraps any core.Cursor with structured logging of every
// statement, scope change, and failure. It is useful while developing
// against an unfamiliar schema or diagnosing transaction ordering.
package loggingdb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/acordia/sqltx/core"
)

//region LoggingCursor

// LoggingCursor decorates an inner cursor, logging each call before
// delegating to it.
type LoggingCursor struct {
	inner  core.Cursor
	logger *zap.Logger
}

var _ core.Cursor = (*LoggingCursor)(nil)

// NewLoggingCursor wraps inner so every statement and scope change is logged
// through logger.
func NewLoggingCursor(inner core.Cursor, logger *zap.Logger) *LoggingCursor {
	return &LoggingCursor{inner: inner, logger: logger}
}

// Execute logs the statement, its argument count, and the elapsed time.
func (cursor *LoggingCursor) Execute(ctx context.Context, sqlQuery string, args []any) (core.Rows, error) {
	start := time.Now()
	rows, err := cursor.inner.Execute(ctx, sqlQuery, args)
	fields := []zap.Field{
		zap.String("sql", sqlQuery),
		zap.Int("args", len(args)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		cursor.logger.Error("execute failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	cursor.logger.Debug("execute", fields...)
	return rows, nil
}

// ExecuteMany logs the statement and how many argument sets it ran with.
func (cursor *LoggingCursor) ExecuteMany(ctx context.Context, sqlQuery string, argSets [][]any) error {
	start := time.Now()
	err := cursor.inner.ExecuteMany(ctx, sqlQuery, argSets)
	fields := []zap.Field{
		zap.String("sql", sqlQuery),
		zap.Int("sets", len(argSets)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		cursor.logger.Error("execute many failed", append(fields, zap.Error(err))...)
		return err
	}
	cursor.logger.Debug("execute many", fields...)
	return nil
}

// Begin logs the scope opening with its isolation level.
func (cursor *LoggingCursor) Begin(ctx context.Context, level core.IsolationLevel) error {
	if err := cursor.inner.Begin(ctx, level); err != nil {
		cursor.logger.Error("begin failed", zap.Error(err))
		return err
	}
	cursor.logger.Debug("begin", zap.Int("isolation", int(level)))
	return nil
}

// Commit logs the scope commit.
func (cursor *LoggingCursor) Commit(ctx context.Context) error {
	if err := cursor.inner.Commit(ctx); err != nil {
		cursor.logger.Error("commit failed", zap.Error(err))
		return err
	}
	cursor.logger.Debug("commit")
	return nil
}

// Rollback logs the scope rollback.
func (cursor *LoggingCursor) Rollback(ctx context.Context) error {
	if err := cursor.inner.Rollback(ctx); err != nil {
		cursor.logger.Error("rollback failed", zap.Error(err))
		return err
	}
	cursor.logger.Debug("rollback")
	return nil
}

//endregion
