// Package core provides the fundamental building blocks of the sqltx library.
// This file defines persistent sequences, the external value generators that
// SequenceIntField draws from.
package core

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Sequence represents a database sequence (or its emulation on backends
// without native sequences). The SQL used to create, advance, and reset it is
// supplied by the dialect.
type Sequence struct {
	name     string
	schema   *SQLSchema
	start    int64
	interval int64
}

// SequenceOption customizes a sequence declaration.
type SequenceOption func(*Sequence)

// StartsAt sets the first value the sequence issues (default 1).
func StartsAt(start int64) SequenceOption {
	return func(s *Sequence) { s.start = start }
}

// IncrementsBy sets the step between issued values (default 1).
func IncrementsBy(interval int64) SequenceOption {
	return func(s *Sequence) { s.interval = interval }
}

// InSchema places the sequence inside a schema namespace and registers it
// there.
func InSchema(schema *SQLSchema) SequenceOption {
	return func(s *Sequence) { s.schema = schema }
}

// NewSequence declares a sequence with the given name.
func NewSequence(name string, opts ...SequenceOption) *Sequence {
	seq := &Sequence{name: name, start: 1, interval: 1}
	for _, opt := range opts {
		opt(seq)
	}
	if seq.schema != nil {
		seq.schema.registerSequence(seq)
	}
	return seq
}

// Name returns the declared sequence name, unqualified.
func (s *Sequence) Name() string { return s.name }

// QualifiedName returns the (possibly schema-qualified) name used in SQL.
func (s *Sequence) QualifiedName(d Dialect) string {
	if s.schema == nil {
		return s.name
	}
	return s.schema.QualifiedName(s.name, d)
}

// CreateSQL returns the statements that create the sequence in the given
// dialect.
func (s *Sequence) CreateSQL(d Dialect) []string {
	d = dialectOrDefault(d, nil)
	return d.CreateSequenceSQL(s.QualifiedName(d), s.start, s.interval)
}

// Create executes the creation statements through the cursor.
func (s *Sequence) Create(ctx context.Context, cur Cursor, d Dialect) error {
	for _, sql := range s.CreateSQL(d) {
		if err := exec(ctx, cur, sql, nil); err != nil {
			return err
		}
	}
	return nil
}

// NextVal advances the sequence and returns the newly issued value. The
// advancing statement and the value-yielding statement come from the dialect;
// the last statement must return the value as a single-column row.
func (s *Sequence) NextVal(ctx context.Context, cur Cursor, d Dialect) (int64, error) {
	d = dialectOrDefault(d, nil)
	statements := d.NextValSQL(s.QualifiedName(d))
	for _, sql := range statements[:len(statements)-1] {
		if err := exec(ctx, cur, sql, nil); err != nil {
			return 0, err
		}
	}
	last := statements[len(statements)-1]
	value, err := queryOneValue(ctx, cur, last, nil)
	if err != nil {
		return 0, err
	}
	next, ok := asInt64(value)
	if !ok {
		return 0, errors.Errorf("sequence %s returned non-integer value %v", s.name, value)
	}
	return next, nil
}

// Reset restarts the sequence at its starting value.
func (s *Sequence) Reset(ctx context.Context, cur Cursor, d Dialect) error {
	d = dialectOrDefault(d, nil)
	for _, sql := range d.ResetSequenceSQL(s.QualifiedName(d)) {
		if err := exec(ctx, cur, sql, nil); err != nil {
			return err
		}
	}
	return nil
}

// String implements fmt.Stringer for log output.
func (s *Sequence) String() string {
	return fmt.Sprintf("Sequence %s (start %d, interval %d)", s.name, s.start, s.interval)
}
