// Package core provides the fundamental building blocks of the sqltx library.
// This file defines parametrized query descriptors. A query carries template
// text with {identifier} placeholders, a declared result record type, and
// typed fields bound to the placeholders. Placeholders are replaced with the
// dialect's bind markers and the field values travel as bound parameters,
// never by literal text substitution.
package core

import (
	"context"
	"regexp"
)

// placeholderPattern matches {identifier} tokens, where identifier follows
// the usual [A-Za-z_][A-Za-z0-9_]* grammar.
var placeholderPattern = regexp.MustCompile(`\{[A-Za-z_][A-Za-z0-9_]*\}`)

// Query is a parametrized statement bound to typed parameter fields and a
// result record schema. A Query owns its parameter values, so a fresh
// instance (or Copy) is needed wherever independent bindings must coexist.
type Query struct {
	name         string
	text         string
	resultSchema *RecordSchema
	params       []FieldSpec
	paramIndex   map[string]int
	values       []any

	// segments and placeholders decompose the template: the generated SQL
	// is segments interleaved with bind markers, one per placeholder, in
	// first-occurrence order. A parameter may appear more than once.
	segments     []string
	placeholders []string
}

// NewQuery declares a query from template text. Every {identifier} token must
// name one of the parameter fields, or construction fails with
// QueryParameterError.
func NewQuery(name, text string, resultSchema *RecordSchema, params ...FieldSpec) (*Query, error) {
	q := &Query{
		name:         name,
		text:         text,
		resultSchema: resultSchema,
		params:       params,
		paramIndex:   make(map[string]int, len(params)),
		values:       make([]any, len(params)),
	}
	for i, param := range params {
		if _, ok := q.paramIndex[param.Name()]; ok {
			return nil, &SchemaError{SchemaName: name,
				Reason: "duplicate parameter field " + param.Name()}
		}
		q.paramIndex[param.Name()] = i
	}

	current := 0
	for _, loc := range placeholderPattern.FindAllStringIndex(text, -1) {
		identifier := text[loc[0]+1 : loc[1]-1]
		if _, ok := q.paramIndex[identifier]; !ok {
			return nil, &QueryParameterError{Placeholder: identifier}
		}
		q.segments = append(q.segments, text[current:loc[0]])
		q.placeholders = append(q.placeholders, identifier)
		current = loc[1]
	}
	q.segments = append(q.segments, text[current:])

	return q, nil
}

// MustQuery is NewQuery panicking on error, for package-level declarations.
func MustQuery(name, text string, resultSchema *RecordSchema, params ...FieldSpec) *Query {
	q, err := NewQuery(name, text, resultSchema, params...)
	if err != nil {
		panic(err)
	}
	return q
}

// Name returns the query's declared name.
func (q *Query) Name() string { return q.name }

// ResultSchema returns the declared result record type.
func (q *Query) ResultSchema() *RecordSchema { return q.resultSchema }

// Copy returns an independent query sharing the parsed template but holding
// its own parameter values.
func (q *Query) Copy() *Query {
	clone := *q
	clone.values = make([]any, len(q.values))
	copy(clone.values, q.values)
	return &clone
}

// SetParam validates and stores a parameter value. Unknown names fail with
// SchemaViolationError.
func (q *Query) SetParam(name string, value any) error {
	i, ok := q.paramIndex[name]
	if !ok {
		return &SchemaViolationError{SchemaName: q.name, Name: name}
	}
	normalized, err := q.params[i].Validate(value)
	if err != nil {
		return err
	}
	q.values[i] = normalized
	return nil
}

// Param returns the stored value of the named parameter field.
func (q *Query) Param(name string) (any, error) {
	i, ok := q.paramIndex[name]
	if !ok {
		return nil, &SchemaViolationError{SchemaName: q.name, Name: name}
	}
	return q.values[i], nil
}

// contextKeyOf resolves the context entry a parameter field tracks: its
// declared context key, defaulting to the field name.
func contextKeyOf(field FieldSpec) string {
	if key := field.ContextKey(); key != "" {
		return key
	}
	return field.Name()
}

// SetContext adopts values from the context for every parameter field whose
// context entry is present with a non-nil value.
func (q *Query) SetContext(tc *Context) error {
	if tc == nil {
		return nil
	}
	for i, param := range q.params {
		key := contextKeyOf(param)
		if !tc.HasValue(key) {
			continue
		}
		normalized, err := param.Validate(tc.Get(key))
		if err != nil {
			return err
		}
		q.values[i] = normalized
	}
	return nil
}

// GetContext returns an ordered context built from the parameter fields'
// stored non-nil values, in declaration order.
func (q *Query) GetContext() *Context {
	tc := NewContext()
	for i, param := range q.params {
		if q.values[i] != nil {
			tc.Set(contextKeyOf(param), q.values[i])
		}
	}
	return tc
}

// SQL returns the query text with each placeholder replaced, in
// first-occurrence order, by the dialect's bind marker.
func (q *Query) SQL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	result := q.segments[0]
	for i := range q.placeholders {
		result += d.Placeholder(i+1) + q.segments[i+1]
	}
	return result
}

// Args returns the bound-parameter list matching the generated placeholder
// order, adapted through the dialect.
func (q *Query) Args(d Dialect) []any {
	d = dialectOrDefault(d, nil)
	args := make([]any, 0, len(q.placeholders))
	for _, identifier := range q.placeholders {
		args = append(args, d.SQLRepr(q.values[q.paramIndex[identifier]]))
	}
	return args
}

// Statement pairs the generated SQL with its ordered bound parameters.
func (q *Query) Statement(d Dialect) Statement {
	return Statement{SQL: q.SQL(d), Args: q.Args(d)}
}

// Execute runs the query through the cursor and returns its rows.
func (q *Query) Execute(ctx context.Context, cur Cursor, d Dialect) (Rows, error) {
	stmt := q.Statement(d)
	rows, err := cur.Execute(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return nil, &DatabaseError{SQL: stmt.SQL, Cause: err}
	}
	return rows, nil
}
