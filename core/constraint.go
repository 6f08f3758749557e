// Package core provides the fundamental building blocks of the sqltx library.
// This file defines table constraints. Primary and foreign keys affect the
// WHERE clauses of generated UPDATE and DELETE statements; all constraints
// contribute DDL fragments to CREATE TABLE output.
package core

import "strings"

// Constraint is a structural rule on a table.
type Constraint interface {
	// Name is the constraint name used in DDL.
	Name() string

	// DDL returns the constraint clause for a CREATE TABLE statement.
	DDL(d Dialect) string
}

// PrimaryKeyConstraint declares an ordered set of columns as the table's
// primary key. A table may carry at most one, and update/delete operations
// require exactly one.
type PrimaryKeyConstraint struct {
	name    string
	columns []string
}

// NewPrimaryKey declares a primary key over the given field names.
func NewPrimaryKey(name string, columns ...string) *PrimaryKeyConstraint {
	return &PrimaryKeyConstraint{name: name, columns: columns}
}

func (c *PrimaryKeyConstraint) Name() string { return c.name }

// Columns returns the key's field names in declaration order.
func (c *PrimaryKeyConstraint) Columns() []string { return c.columns }

func (c *PrimaryKeyConstraint) DDL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	return "CONSTRAINT " + d.QuoteIdentifier(c.name) +
		" PRIMARY KEY (" + joinQuoted(d, c.columns) + ")"
}

// ForeignKeyConstraint declares that a set of columns references columns of
// another table. When the referenced column names are omitted they default to
// the local column names (a natural join).
type ForeignKeyConstraint struct {
	name             string
	columns          []string
	foreignTable     string
	referenceColumns []string
}

// NewForeignKey declares a foreign key from columns to foreignTable. Pass nil
// referenceColumns to reference columns of the same names.
func NewForeignKey(name string, columns []string, foreignTable string, referenceColumns []string) *ForeignKeyConstraint {
	if referenceColumns == nil {
		referenceColumns = columns
	}
	return &ForeignKeyConstraint{
		name:             name,
		columns:          columns,
		foreignTable:     foreignTable,
		referenceColumns: referenceColumns,
	}
}

func (c *ForeignKeyConstraint) Name() string { return c.name }

// Columns returns the referencing field names.
func (c *ForeignKeyConstraint) Columns() []string { return c.columns }

// ForeignTable returns the referenced table name.
func (c *ForeignKeyConstraint) ForeignTable() string { return c.foreignTable }

func (c *ForeignKeyConstraint) DDL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	return "CONSTRAINT " + d.QuoteIdentifier(c.name) +
		" FOREIGN KEY (" + joinQuoted(d, c.columns) +
		") REFERENCES " + d.QuoteIdentifier(c.foreignTable) +
		" (" + joinQuoted(d, c.referenceColumns) + ")"
}

// UniqueConstraint declares that a set of columns must hold distinct value
// combinations.
type UniqueConstraint struct {
	name    string
	columns []string
}

// NewUnique declares a uniqueness constraint over the given field names.
func NewUnique(name string, columns ...string) *UniqueConstraint {
	return &UniqueConstraint{name: name, columns: columns}
}

func (c *UniqueConstraint) Name() string { return c.name }

func (c *UniqueConstraint) DDL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	return "CONSTRAINT " + d.QuoteIdentifier(c.name) +
		" UNIQUE (" + joinQuoted(d, c.columns) + ")"
}

// CheckConstraint carries a raw SQL expression checked on every row.
type CheckConstraint struct {
	name     string
	checkSQL string
}

// NewCheck declares a check constraint from a raw SQL expression.
func NewCheck(name, checkSQL string) *CheckConstraint {
	return &CheckConstraint{name: name, checkSQL: checkSQL}
}

func (c *CheckConstraint) Name() string { return c.name }

func (c *CheckConstraint) DDL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	return "CONSTRAINT " + d.QuoteIdentifier(c.name) + " CHECK (" + c.checkSQL + ")"
}

func joinQuoted(d Dialect, names []string) string {
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, d.QuoteIdentifier(name))
	}
	return strings.Join(quoted, ", ")
}
