// Package core provides the fundamental building blocks of the sqltx library.
// This file defines record schemas (ordered, named collections of field
// descriptors) and record instances (fixed-shape typed slot tables). Schemas
// are declared once and immutable; instances are mutated only through
// validated setters.
package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Statement pairs generated SQL text with its bound parameter values, ordered
// to match the generated placeholders.
type Statement struct {
	SQL  string
	Args []any
}

// Relation is any named, selectable entity a record can map to: a table or a
// view. Write statements are the business of writable relations only (see
// WritableRelation in table.go).
type Relation interface {
	// RelationName is the unqualified SQL object name.
	RelationName() string

	// Schema returns the record schema describing the relation's columns.
	Schema() *RecordSchema

	// QualifiedName returns the possibly schema-qualified object name.
	QualifiedName(d Dialect) string

	// ContextSelectStatement generates a SELECT whose WHERE clause conjoins
	// column = value for every field whose context key has a non-nil value
	// in tc. With zero matches the statement is unrestricted, which is only
	// permitted when allowUnlimited is set; otherwise UnboundQueryError.
	ContextSelectStatement(tc *Context, d Dialect, allowUnlimited bool) (Statement, error)
}

// RecordSchema is an ordered, named list of field descriptors defining an
// entity shape.
type RecordSchema struct {
	name   string
	fields []FieldSpec
	index  map[string]int
}

// NewRecordSchema declares a schema from an ordered field list. Duplicate
// field names are rejected with a SchemaError.
func NewRecordSchema(name string, fields ...FieldSpec) (*RecordSchema, error) {
	index := make(map[string]int, len(fields))
	for i, field := range fields {
		if _, ok := index[field.Name()]; ok {
			return nil, &SchemaError{SchemaName: name,
				Reason: fmt.Sprintf("duplicate field name %q", field.Name())}
		}
		index[field.Name()] = i
	}
	return &RecordSchema{name: name, fields: fields, index: index}, nil
}

// MustRecordSchema is NewRecordSchema panicking on error, for package-level
// schema declarations.
func MustRecordSchema(name string, fields ...FieldSpec) *RecordSchema {
	schema, err := NewRecordSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return schema
}

// Name returns the schema's declared name.
func (s *RecordSchema) Name() string { return s.name }

// Fields returns the field descriptors in declaration order. The returned
// slice must not be mutated.
func (s *RecordSchema) Fields() []FieldSpec { return s.fields }

// FieldCount returns the number of declared fields.
func (s *RecordSchema) FieldCount() int { return len(s.fields) }

// Field returns the descriptor declared under name.
func (s *RecordSchema) Field(name string) (FieldSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// ColumnNamesSQL returns the comma-separated quoted column list in
// declaration order.
func (s *RecordSchema) ColumnNamesSQL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	names := make([]string, 0, len(s.fields))
	for _, field := range s.fields {
		names = append(names, d.QuoteIdentifier(field.SQLName()))
	}
	return strings.Join(names, ", ")
}

// NewRecord instantiates an empty record of this schema.
func (s *RecordSchema) NewRecord() *Record {
	return &Record{schema: s, values: make([]any, len(s.fields))}
}

// NewRecordValues instantiates a record with one value per declared field, in
// declaration order.
func (s *RecordSchema) NewRecordValues(values ...any) (*Record, error) {
	record := s.NewRecord()
	if err := record.SetValues(values); err != nil {
		return nil, err
	}
	return record, nil
}

// Record is a typed instance of a schema. Only declared field names are
// settable, and every assignment is validated against the field's value type.
type Record struct {
	schema   *RecordSchema
	relation Relation
	values   []any
}

// Schema returns the record's schema.
func (r *Record) Schema() *RecordSchema { return r.schema }

// Relation returns the table or view this record maps to, or nil for a bare
// record.
func (r *Record) Relation() Relation { return r.relation }

// Get returns the stored value of the named field. An unknown name fails with
// SchemaViolationError.
func (r *Record) Get(name string) (any, error) {
	i, ok := r.schema.index[name]
	if !ok {
		return nil, &SchemaViolationError{SchemaName: r.schema.name, Name: name}
	}
	return r.values[i], nil
}

// MustGet is Get panicking on unknown names, for use where the name is a
// compile-time constant.
func (r *Record) MustGet(name string) any {
	value, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return value
}

// Set validates value against the named field's type and stores it. Unknown
// names fail with SchemaViolationError, bad values with ValidationError.
func (r *Record) Set(name string, value any) error {
	i, ok := r.schema.index[name]
	if !ok {
		return &SchemaViolationError{SchemaName: r.schema.name, Name: name}
	}
	normalized, err := r.schema.fields[i].Validate(value)
	if err != nil {
		return err
	}
	r.values[i] = normalized
	return nil
}

// SetValues assigns one value per declared field, in declaration order. A nil
// value leaves the slot unset without a nullability check, so columns that are
// filled from the context at statement time can be declared NOT NULL and still
// be built row by row.
func (r *Record) SetValues(values []any) error {
	if len(values) != len(r.schema.fields) {
		return &SchemaError{SchemaName: r.schema.name,
			Reason: fmt.Sprintf("%d values required, %d supplied", len(r.schema.fields), len(values))}
	}
	for i, field := range r.schema.fields {
		if values[i] == nil {
			r.values[i] = nil
			continue
		}
		normalized, err := field.Validate(values[i])
		if err != nil {
			return err
		}
		r.values[i] = normalized
	}
	return nil
}

// Clear resets every slot to nil.
func (r *Record) Clear() {
	for i := range r.values {
		r.values[i] = nil
	}
}

// Copy returns an independent record with the same stored values.
func (r *Record) Copy() *Record {
	clone := &Record{schema: r.schema, relation: r.relation, values: make([]any, len(r.values))}
	copy(clone.values, r.values)
	return clone
}

// Values returns the per-field values after context resolution: wherever a
// field tracks a context key holding a non-nil value, the context value
// overrides the stored one. Pass nil to read stored values unchanged.
func (r *Record) Values(tc *Context) []any {
	result := make([]any, len(r.values))
	for i, field := range r.schema.fields {
		result[i] = field.Resolve(r.values[i], tc)
	}
	return result
}

// SQLValues is Values adapted through the dialect into bound-parameter form.
func (r *Record) SQLValues(tc *Context, d Dialect) []any {
	d = dialectOrDefault(d, nil)
	values := r.Values(tc)
	for i, value := range values {
		values[i] = d.SQLRepr(value)
	}
	return values
}

// ApplyContext propagates context values into the record: every field whose
// context key is present in tc with a non-nil value adopts that value as its
// stored state. Context is authoritative over prior local state.
func (r *Record) ApplyContext(tc *Context) error {
	if tc == nil {
		return nil
	}
	for i, field := range r.schema.fields {
		key := field.ContextKey()
		if key == "" || !tc.HasValue(key) {
			continue
		}
		normalized, err := field.Validate(tc.Get(key))
		if err != nil {
			return err
		}
		r.values[i] = normalized
	}
	return nil
}

// storeContextValues copies the record's stored, non-nil context-bound values
// into tc. Used for back-propagation after selects: values discovered only
// through fetched rows become visible to later steps and to the caller.
// Existing non-nil context entries are never overwritten.
func (r *Record) storeContextValues(tc *Context) {
	for i, field := range r.schema.fields {
		key := field.ContextKey()
		if key == "" || r.values[i] == nil {
			continue
		}
		if !tc.HasValue(key) {
			tc.Set(key, r.values[i])
		}
	}
}

// MarshalJSON encodes the record as an object mapping field names to stored
// values, in declaration order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, field := range r.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(field.Name())
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}

// String implements fmt.Stringer for log output.
func (r *Record) String() string {
	var buf strings.Builder
	buf.WriteString(r.schema.name)
	buf.WriteString(" {")
	for i, field := range r.schema.fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s: %v", field.Name(), r.values[i])
	}
	buf.WriteByte('}')
	return buf.String()
}
