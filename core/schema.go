// Package core provides the fundamental building blocks of the sqltx library.
// This file defines schema namespaces that group associated tables, views,
// and sequences. Where the backend supports SQL schemas the objects share a
// namespace; elsewhere they share a name prefix.
package core

// SQLSchema is a named grouping of database objects. Objects registered with
// a schema render schema-qualified names on dialects with schema support and
// underscore-prefixed names on dialects without.
type SQLSchema struct {
	name      string
	tables    []*TableSchema
	views     []*ViewSchema
	sequences []*Sequence
}

// NewSQLSchema declares a schema namespace.
func NewSQLSchema(name string) *SQLSchema {
	return &SQLSchema{name: name}
}

// Name returns the schema's name.
func (s *SQLSchema) Name() string { return s.name }

// AddTable registers a table in the namespace and qualifies its name.
func (s *SQLSchema) AddTable(t *TableSchema) {
	t.sqlSchema = s
	s.tables = append(s.tables, t)
}

// AddView registers a view in the namespace and qualifies its name.
func (s *SQLSchema) AddView(v *ViewSchema) {
	v.sqlSchema = s
	s.views = append(s.views, v)
}

// AddSequence registers a sequence in the namespace and qualifies its name.
func (s *SQLSchema) AddSequence(seq *Sequence) {
	seq.schema = s
	s.registerSequence(seq)
}

func (s *SQLSchema) registerSequence(seq *Sequence) {
	s.sequences = append(s.sequences, seq)
}

// QualifiedName joins the schema and object names with "." on backends with
// schema support and "_" on backends without.
func (s *SQLSchema) QualifiedName(object string, d Dialect) string {
	d = dialectOrDefault(d, nil)
	if d.SchemaSupport() {
		return s.name + "." + object
	}
	return s.name + "_" + object
}

// QualifiedQuotedName is QualifiedName with each part quoted as an
// identifier.
func (s *SQLSchema) QualifiedQuotedName(object string, d Dialect) string {
	d = dialectOrDefault(d, nil)
	if d.SchemaSupport() {
		return d.QuoteIdentifier(s.name) + "." + d.QuoteIdentifier(object)
	}
	return d.QuoteIdentifier(s.name + "_" + object)
}

// CreateSchemaSQL returns the CREATE SCHEMA statement, or "" on dialects
// without schema support (objects there are disambiguated by prefix instead).
func (s *SQLSchema) CreateSchemaSQL(d Dialect) string {
	d = dialectOrDefault(d, nil)
	if !d.SchemaSupport() {
		return ""
	}
	return "CREATE SCHEMA IF NOT EXISTS " + d.QuoteIdentifier(s.name) + ";"
}

// CreateObjectsSQL returns the DDL for every registered object: sequences
// first (tables may default from them), then tables, then views.
func (s *SQLSchema) CreateObjectsSQL(d Dialect) []string {
	d = dialectOrDefault(d, nil)
	var statements []string
	if sql := s.CreateSchemaSQL(d); sql != "" {
		statements = append(statements, sql)
	}
	for _, seq := range s.sequences {
		statements = append(statements, seq.CreateSQL(d)...)
	}
	for _, t := range s.tables {
		statements = append(statements, t.CreateTableSQL(d))
	}
	for _, v := range s.views {
		statements = append(statements, v.CreateViewSQL(d))
	}
	return statements
}
