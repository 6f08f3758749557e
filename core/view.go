// Package core provides the fundamental building blocks of the sqltx library.
// This file defines view schemas: record schemas bound to a named SQL view.
// Views participate in selects exactly like tables but accept no writes.
package core

// ViewSchema maps a record schema onto an SQL view defined by a query.
type ViewSchema struct {
	record    *RecordSchema
	viewName  string
	sqlSchema *SQLSchema
	queryText string
}

var _ Relation = (*ViewSchema)(nil)

// NewViewSchema declares a view over the given record schema, defined by
// queryText.
func NewViewSchema(viewName string, record *RecordSchema, queryText string) *ViewSchema {
	return &ViewSchema{record: record, viewName: viewName, queryText: queryText}
}

// RelationName returns the unqualified view name.
func (v *ViewSchema) RelationName() string { return v.viewName }

// Schema returns the underlying record schema.
func (v *ViewSchema) Schema() *RecordSchema { return v.record }

// QualifiedName returns the (possibly schema-qualified) view name.
func (v *ViewSchema) QualifiedName(d Dialect) string {
	d = dialectOrDefault(d, nil)
	if v.sqlSchema == nil {
		return d.QuoteIdentifier(v.viewName)
	}
	return v.sqlSchema.QualifiedQuotedName(v.viewName, d)
}

// NewRecord instantiates an empty record bound to this view.
func (v *ViewSchema) NewRecord() *Record {
	record := v.record.NewRecord()
	record.relation = v
	return record
}

// NewList instantiates an empty record list typed to this view.
func (v *ViewSchema) NewList() *RecordList {
	return newRecordList(v)
}

// CreateViewSQL returns the CREATE VIEW statement naming every declared
// column.
func (v *ViewSchema) CreateViewSQL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	return "CREATE VIEW IF NOT EXISTS " + v.QualifiedName(d) + " (" +
		v.record.ColumnNamesSQL(d) + ") AS\n" + v.queryText + ";"
}

// SimpleSelectStatement generates a SELECT over the view conjoining the
// supplied column = value predicates.
func (v *ViewSchema) SimpleSelectStatement(d Dialect, predicates ...Predicate) (Statement, error) {
	return simpleSelect(v.record, v.QualifiedName(dialectOrDefault(d, nil)), d, predicates)
}

// ContextSelectStatement implements Relation for views.
func (v *ViewSchema) ContextSelectStatement(tc *Context, d Dialect, allowUnlimited bool) (Statement, error) {
	return contextSelect(v.record, v.viewName, v.QualifiedName(dialectOrDefault(d, nil)), tc, d, allowUnlimited)
}
