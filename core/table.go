// Package core provides the fundamental building blocks of the sqltx library.
// This file defines table schemas: record schemas bound to a named SQL table
// with constraints, generating dialect-correct parametrized INSERT, UPDATE,
// SELECT, and DELETE statements.
package core

import (
	"fmt"
	"strings"
)

// WritableRelation is a Relation that supports coordinated write statements.
// Tables are writable; views are not.
type WritableRelation interface {
	Relation

	// InsertStatement generates an INSERT over all declared columns.
	InsertStatement(r *Record, tc *Context, d Dialect) Statement

	// UpdateStatement generates an UPDATE of the non-key columns keyed on
	// the primary key.
	UpdateStatement(r *Record, tc *Context, d Dialect) (Statement, error)

	// DeleteStatement generates a DELETE keyed on the primary key.
	DeleteStatement(r *Record, tc *Context, d Dialect) (Statement, error)
}

// Predicate is one column = value term of a simple WHERE clause.
type Predicate struct {
	Field string
	Value any
}

// Eq builds a Predicate; it exists to keep call sites compact.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Value: value}
}

// TableSchema maps a record schema onto an SQL table, adding a table name,
// optional schema namespace, and constraints.
type TableSchema struct {
	record      *RecordSchema
	tableName   string
	sqlSchema   *SQLSchema
	constraints []Constraint
	primaryKey  *PrimaryKeyConstraint
}

var _ WritableRelation = (*TableSchema)(nil)

// TableOption customizes a table declaration.
type TableOption func(*TableSchema)

// WithConstraint attaches a constraint to the table.
func WithConstraint(c Constraint) TableOption {
	return func(t *TableSchema) { t.constraints = append(t.constraints, c) }
}

// NewTableSchema declares a table over the given record schema. Constraint
// columns are checked against the declared fields, and at most one primary
// key is accepted.
func NewTableSchema(tableName string, record *RecordSchema, opts ...TableOption) (*TableSchema, error) {
	table := &TableSchema{record: record, tableName: tableName}
	for _, opt := range opts {
		opt(table)
	}
	for _, constraint := range table.constraints {
		switch c := constraint.(type) {
		case *PrimaryKeyConstraint:
			if table.primaryKey != nil {
				return nil, &SchemaError{SchemaName: tableName,
					Reason: "a table cannot have multiple primary key constraints"}
			}
			if err := table.checkColumns(c.Name(), c.Columns()); err != nil {
				return nil, err
			}
			table.primaryKey = c
		case *ForeignKeyConstraint:
			if err := table.checkColumns(c.Name(), c.Columns()); err != nil {
				return nil, err
			}
		case *UniqueConstraint:
			if err := table.checkColumns(c.Name(), c.columns); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

// MustTableSchema is NewTableSchema panicking on error, for package-level
// table declarations.
func MustTableSchema(tableName string, record *RecordSchema, opts ...TableOption) *TableSchema {
	table, err := NewTableSchema(tableName, record, opts...)
	if err != nil {
		panic(err)
	}
	return table
}

func (t *TableSchema) checkColumns(constraintName string, columns []string) error {
	for _, column := range columns {
		if _, ok := t.record.Field(column); !ok {
			return &SchemaError{SchemaName: t.tableName,
				Reason: fmt.Sprintf("constraint %q references non-existent column %q", constraintName, column)}
		}
	}
	return nil
}

// RelationName returns the unqualified table name.
func (t *TableSchema) RelationName() string { return t.tableName }

// Schema returns the underlying record schema.
func (t *TableSchema) Schema() *RecordSchema { return t.record }

// PrimaryKey returns the table's primary key constraint, or nil.
func (t *TableSchema) PrimaryKey() *PrimaryKeyConstraint { return t.primaryKey }

// Constraints returns the attached constraints in declaration order.
func (t *TableSchema) Constraints() []Constraint { return t.constraints }

// QualifiedName returns the (possibly schema-qualified) table name.
func (t *TableSchema) QualifiedName(d Dialect) string {
	d = dialectOrDefault(d, nil)
	if t.sqlSchema == nil {
		return d.QuoteIdentifier(t.tableName)
	}
	return t.sqlSchema.QualifiedQuotedName(t.tableName, d)
}

// NewRecord instantiates an empty record bound to this table.
func (t *TableSchema) NewRecord() *Record {
	record := t.record.NewRecord()
	record.relation = t
	return record
}

// NewRecordValues instantiates a bound record with one value per field.
func (t *TableSchema) NewRecordValues(values ...any) (*Record, error) {
	record := t.NewRecord()
	if err := record.SetValues(values); err != nil {
		return nil, err
	}
	return record, nil
}

// NewList instantiates an empty record list typed to this table.
func (t *TableSchema) NewList() *RecordList {
	return newRecordList(t)
}

// CreateTableSQL returns the CREATE TABLE statement declaring all columns and
// constraints.
func (t *TableSchema) CreateTableSQL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	parts := make([]string, 0, len(t.record.fields)+len(t.constraints))
	for _, field := range t.record.fields {
		decl := d.QuoteIdentifier(field.SQLName()) + " " + field.SQLType(d)
		if !field.Nullable() {
			decl += " NOT NULL"
		}
		parts = append(parts, decl)
	}
	for _, constraint := range t.constraints {
		parts = append(parts, constraint.DDL(d))
	}
	return "CREATE TABLE IF NOT EXISTS " + t.QualifiedName(d) + " (\n    " +
		strings.Join(parts, ",\n    ") + "\n);"
}

// InsertSQL returns the parametrized INSERT template covering every declared
// column. Values are always passed as bound parameters, never inlined.
func (t *TableSchema) InsertSQL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	return "INSERT INTO " + t.QualifiedName(d) + " (" + t.record.ColumnNamesSQL(d) +
		") VALUES (" + d.Parameters(t.record.FieldCount(), 1) + ");"
}

// InsertStatement pairs the INSERT template with the record's context-resolved
// values.
func (t *TableSchema) InsertStatement(r *Record, tc *Context, d Dialect) Statement {
	d = dialectOrDefault(d, nil)
	return Statement{SQL: t.InsertSQL(d), Args: r.SQLValues(tc, d)}
}

// pkItems resolves the primary key columns of a record to their SQL names and
// current values. Nil key values cannot constrain a WHERE clause and fail
// with UnboundQueryError.
func (t *TableSchema) pkItems(r *Record, tc *Context, d Dialect) ([]string, []any, error) {
	names := make([]string, 0, len(t.primaryKey.columns))
	values := make([]any, 0, len(t.primaryKey.columns))
	for _, column := range t.primaryKey.columns {
		field, _ := t.record.Field(column)
		stored, _ := r.Get(column)
		value := field.Resolve(stored, tc)
		if value == nil {
			return nil, nil, &UnboundQueryError{RelationName: t.tableName + " (primary key column " + column + " is null)"}
		}
		names = append(names, field.SQLName())
		values = append(values, d.SQLRepr(value))
	}
	return names, values, nil
}

// requirePrimaryKey enforces the exactly-one-primary-key precondition for
// keyed statements.
func (t *TableSchema) requirePrimaryKey() error {
	if t.primaryKey == nil {
		return &SchemaError{SchemaName: t.tableName,
			Reason: "operation requires a table with exactly one primary key constraint"}
	}
	return nil
}

// UpdateStatement generates an UPDATE setting every non-key column and keyed
// on the primary key columns, conjoined with AND.
func (t *TableSchema) UpdateStatement(r *Record, tc *Context, d Dialect) (Statement, error) {
	d = dialectOrDefault(d, nil)
	if err := t.requirePrimaryKey(); err != nil {
		return Statement{}, err
	}

	pkColumns := make(map[string]struct{}, len(t.primaryKey.columns))
	for _, column := range t.primaryKey.columns {
		pkColumns[column] = struct{}{}
	}

	setNames := make([]string, 0, t.record.FieldCount())
	setValues := make([]any, 0, t.record.FieldCount())
	for i, field := range t.record.fields {
		if _, ok := pkColumns[field.Name()]; ok {
			continue
		}
		setNames = append(setNames, field.SQLName())
		setValues = append(setValues, d.SQLRepr(field.Resolve(r.values[i], tc)))
	}

	pkNames, pkValues, err := t.pkItems(r, tc, d)
	if err != nil {
		return Statement{}, err
	}

	sql := "UPDATE " + t.QualifiedName(d) + " SET " +
		d.AssignmentList(setNames, 1, ",") + " WHERE " +
		d.AssignmentList(pkNames, len(setNames)+1, "AND") + ";"

	return Statement{SQL: sql, Args: append(setValues, pkValues...)}, nil
}

// DeleteStatement generates a DELETE keyed on the primary key columns.
func (t *TableSchema) DeleteStatement(r *Record, tc *Context, d Dialect) (Statement, error) {
	d = dialectOrDefault(d, nil)
	if err := t.requirePrimaryKey(); err != nil {
		return Statement{}, err
	}
	pkNames, pkValues, err := t.pkItems(r, tc, d)
	if err != nil {
		return Statement{}, err
	}
	sql := "DELETE FROM " + t.QualifiedName(d) + " WHERE " +
		d.AssignmentList(pkNames, 1, "AND") + ";"
	return Statement{SQL: sql, Args: pkValues}, nil
}

// PKSelectStatement generates a SELECT retrieving the record by primary key.
func (t *TableSchema) PKSelectStatement(r *Record, tc *Context, d Dialect) (Statement, error) {
	d = dialectOrDefault(d, nil)
	if err := t.requirePrimaryKey(); err != nil {
		return Statement{}, err
	}
	pkNames, pkValues, err := t.pkItems(r, tc, d)
	if err != nil {
		return Statement{}, err
	}
	sql := "SELECT " + t.record.ColumnNamesSQL(d) + " FROM " + t.QualifiedName(d) +
		" WHERE " + d.AssignmentList(pkNames, 1, "AND") + ";"
	return Statement{SQL: sql, Args: pkValues}, nil
}

// SimpleSelectStatement generates a SELECT whose WHERE clause conjoins the
// supplied column = value predicates, in the order given.
func (t *TableSchema) SimpleSelectStatement(d Dialect, predicates ...Predicate) (Statement, error) {
	return simpleSelect(t.record, t.QualifiedName(dialectOrDefault(d, nil)), d, predicates)
}

// ContextSelectStatement implements Relation for tables.
func (t *TableSchema) ContextSelectStatement(tc *Context, d Dialect, allowUnlimited bool) (Statement, error) {
	return contextSelect(t.record, t.tableName, t.QualifiedName(dialectOrDefault(d, nil)), tc, d, allowUnlimited)
}

// simpleSelect is the statement builder shared by tables and views.
func simpleSelect(record *RecordSchema, qualifiedName string, d Dialect, predicates []Predicate) (Statement, error) {
	d = dialectOrDefault(d, nil)
	sql := "SELECT " + record.ColumnNamesSQL(d) + " FROM " + qualifiedName

	if len(predicates) > 0 {
		names := make([]string, 0, len(predicates))
		values := make([]any, 0, len(predicates))
		for _, predicate := range predicates {
			field, ok := record.Field(predicate.Field)
			if !ok {
				return Statement{}, &SchemaViolationError{SchemaName: record.name, Name: predicate.Field}
			}
			names = append(names, field.SQLName())
			values = append(values, d.SQLRepr(predicate.Value))
		}
		sql += " WHERE " + d.AssignmentList(names, 1, "AND") + ";"
		return Statement{SQL: sql, Args: values}, nil
	}

	return Statement{SQL: sql + ";"}, nil
}

// contextSelect is the context-keyed statement builder shared by tables and
// views.
func contextSelect(record *RecordSchema, relationName, qualifiedName string, tc *Context, d Dialect, allowUnlimited bool) (Statement, error) {
	d = dialectOrDefault(d, nil)

	names := make([]string, 0, record.FieldCount())
	values := make([]any, 0, record.FieldCount())
	for _, field := range record.fields {
		key := field.ContextKey()
		if key == "" || tc == nil || !tc.HasValue(key) {
			continue
		}
		names = append(names, field.SQLName())
		values = append(values, d.SQLRepr(tc.Get(key)))
	}

	if len(names) == 0 && !allowUnlimited {
		return Statement{}, &UnboundQueryError{RelationName: relationName}
	}

	sql := "SELECT " + record.ColumnNamesSQL(d) + " FROM " + qualifiedName
	if len(names) > 0 {
		sql += " WHERE " + d.AssignmentList(names, 1, "AND")
	}
	return Statement{SQL: sql + ";", Args: values}, nil
}
