// Package core provides the fundamental building blocks of the sqltx library.
// This file defines the error taxonomy shared by fields, records, tables,
// queries, and transaction orchestration.
package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	errNoRows       = errors.New("statement returned no rows")
	errNotOneColumn = errors.New("statement did not return exactly one column")
)

// ValidationError reports that a value failed a field's type or format check
// at assignment time. It is raised immediately and is independent of any
// transaction scope.
type ValidationError struct {
	FieldName string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.FieldName, e.Reason)
}

// SchemaViolationError reports an attempt to read or write an attribute name
// that is not part of the declared schema.
type SchemaViolationError struct {
	SchemaName string
	Name       string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("%q is not a declared field of %s", e.Name, e.SchemaName)
}

// SchemaError reports a structural problem with a schema definition, such as
// a missing or duplicate primary key where exactly one is required.
type SchemaError struct {
	SchemaName string
	Reason     string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %s", e.SchemaName, e.Reason)
}

// VerificationError reports that a verification hook rejected the context or
// data of a transaction. Any database scope opened by the operation is rolled
// back before the error surfaces.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	if e.Reason == "" {
		return "transaction failed verification"
	}
	return "transaction failed verification: " + e.Reason
}

// UnboundQueryError reports that a context select would have produced a SELECT
// with no WHERE clause while unlimited queries were not explicitly allowed.
// It guards against accidental unrestricted scans.
type UnboundQueryError struct {
	RelationName string
}

func (e *UnboundQueryError) Error() string {
	return fmt.Sprintf("no WHERE clause could be generated for %s - missing or misnamed context values?",
		e.RelationName)
}

// QueryParameterError reports a placeholder in a query template that does not
// correspond to any bound field.
type QueryParameterError struct {
	Placeholder string
}

func (e *QueryParameterError) Error() string {
	return fmt.Sprintf("query placeholder {%s} does not match any bound field", e.Placeholder)
}

// GenerationError reports a failure of an external value generator (sequence,
// clock) during a field update.
type GenerationError struct {
	FieldName string
	Cause     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating value for field %q: %v", e.FieldName, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// DatabaseError is an opaque passthrough for errors raised by the underlying
// driver while executing a statement.
type DatabaseError struct {
	SQL   string
	Cause error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error executing %q: %v", e.SQL, e.Cause)
}

func (e *DatabaseError) Unwrap() error { return e.Cause }
