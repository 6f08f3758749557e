package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLSchema_QualifiedNamesFallBackToPrefix(t *testing.T) {
	schema := NewSQLSchema("ledger")

	// SQLite has no schema namespaces; objects share a name prefix.
	assert.Equal(t, "ledger_transactions", schema.QualifiedName("transactions", SQLite))
	assert.Equal(t, `"ledger_transactions"`, schema.QualifiedQuotedName("transactions", SQLite))
	assert.Equal(t, "", schema.CreateSchemaSQL(SQLite))
}

func TestSQLSchema_CreateObjectsSQLOrder(t *testing.T) {
	schema := NewSQLSchema("ledger")

	NewSequence("trans_id", InSchema(schema))

	record := MustRecordSchema("transactions_row", NewIntegerField("trans_id"))
	table := MustTableSchema("transactions", record)
	schema.AddTable(table)

	view := NewViewSchema("posted_transactions", record,
		`SELECT trans_id FROM ledger_transactions WHERE posted = 1`)
	schema.AddView(view)

	statements := schema.CreateObjectsSQL(SQLite)
	require.Len(t, statements, 4) // two sequence statements, table, view
	assert.Contains(t, statements[0], `"ledger_trans_id"`)
	assert.Contains(t, statements[2], `CREATE TABLE IF NOT EXISTS "ledger_transactions"`)
	assert.Contains(t, statements[3], `CREATE VIEW IF NOT EXISTS "ledger_posted_transactions"`)
}

func TestViewSchema_SelectsButDoesNotWrite(t *testing.T) {
	record := MustRecordSchema("v_row", NewIntegerField("trans_id", ContextKey("trans_id")))
	view := NewViewSchema("posted", record, `SELECT trans_id FROM transactions`)

	tc := NewContext()
	tc.Set("trans_id", int64(4))
	stmt, err := view.ContextSelectStatement(tc, SQLite, false)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "trans_id" FROM "posted" WHERE "trans_id" = ?;`, stmt.SQL)

	// Views are not writable relations.
	_, writable := Relation(view).(WritableRelation)
	assert.False(t, writable)
}
