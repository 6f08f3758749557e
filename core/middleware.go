// Package core provides the fundamental building blocks of the sqltx library.
// This file defines the middleware system, which allows cross-cutting concerns
// (logging, timing, auditing, etc.) to be applied to transaction operations.
package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Operation represents the type of operation being executed by the
// transaction orchestrator.
//
// It is used within middlewares to distinguish between inserts, updates,
// deletes, and selects.
type Operation string

const (
	// OperationInsert corresponds to InsertNew and InsertExisting.
	OperationInsert Operation = "insert"
	// OperationUpdate corresponds to Update.
	OperationUpdate Operation = "update"
	// OperationDelete corresponds to Delete.
	OperationDelete Operation = "delete"
	// OperationSelect corresponds to ContextSelect.
	OperationSelect Operation = "select"
)

// Handler is the function signature executed by the operation pipeline.
//
// It receives a context, the operation type, and the transaction being
// operated on. Handlers are composed by middlewares to add cross-cutting
// logic.
type Handler func(ctx context.Context, op Operation, t *Transaction) error

// Middleware is a function that wraps a Handler with additional logic.
//
// Middlewares are chained globally and executed for every operation.
// They follow the decorator pattern.
type Middleware func(next Handler) Handler

var globalMiddlewareList []Middleware

// Use registers a new global middleware, applied to all operations.
//
// Middlewares are executed in reverse registration order: the most
// recently registered middleware is executed first.
func Use(mw Middleware) {
	globalMiddlewareList = append(globalMiddlewareList, mw)
}

// runMiddlewares applies the chain of middlewares to the final handler.
func runMiddlewares(final Handler) Handler {
	h := final
	// Apply in reverse order (last registered runs first).
	for i := len(globalMiddlewareList) - 1; i >= 0; i-- {
		h = globalMiddlewareList[i](h)
	}
	return h
}

// dispatchOperation executes an operation through the global middleware chain.
//
// The exec function contains the core logic of the operation and is wrapped
// by the registered middlewares.
func dispatchOperation(ctx context.Context, op Operation, t *Transaction, exec func() error) error {
	handler := runMiddlewares(func(ctx context.Context, op Operation, t *Transaction) error {
		return exec()
	})
	return handler(ctx, op, t)
}

// LoggingMiddleware logs every operation passing through the orchestrator.
//
// It records the operation kind, the transaction name, the execution time,
// and the error when one occurred.
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	core.Use(core.LoggingMiddleware(logger))
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, op Operation, t *Transaction) error {
			start := time.Now()
			err := next(ctx, op, t)
			fields := []zap.Field{
				zap.String("operation", string(op)),
				zap.String("transaction", t.Name()),
				zap.Duration("elapsed", time.Since(start)),
			}
			if err != nil {
				logger.Error("transaction operation failed", append(fields, zap.Error(err))...)
			} else {
				logger.Info("transaction operation completed", fields...)
			}
			return err
		}
	}
}
