package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transactionsTable(t *testing.T) *TableSchema {
	t.Helper()
	record := MustRecordSchema("transactions_row",
		NewIntegerField("trans_id", ContextKey("trans_id"), NotNull()),
		NewTextField("narrative"),
		NewBooleanField("posted"),
	)
	return MustTableSchema("transactions", record,
		WithConstraint(NewPrimaryKey("transactions_pk", "trans_id")))
}

func TestNewTableSchema_RejectsUnknownConstraintColumns(t *testing.T) {
	record := MustRecordSchema("row", NewIntegerField("a"))
	_, err := NewTableSchema("bad", record,
		WithConstraint(NewPrimaryKey("bad_pk", "missing")))
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)
}

func TestNewTableSchema_RejectsMultiplePrimaryKeys(t *testing.T) {
	record := MustRecordSchema("row", NewIntegerField("a"), NewIntegerField("b"))
	_, err := NewTableSchema("bad", record,
		WithConstraint(NewPrimaryKey("pk1", "a")),
		WithConstraint(NewPrimaryKey("pk2", "b")))
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)
}

func TestTableSchema_InsertStatement(t *testing.T) {
	table := transactionsTable(t)
	r, err := table.NewRecordValues(int64(1), "opening", false)
	require.NoError(t, err)

	stmt := table.InsertStatement(r, nil, SQLite)
	assert.Equal(t,
		`INSERT INTO "transactions" ("trans_id", "narrative", "posted") VALUES (?, ?, ?);`,
		stmt.SQL)
	// SQLite stores booleans as integers.
	assert.Equal(t, []any{int64(1), "opening", int64(0)}, stmt.Args)
}

func TestTableSchema_UpdateStatementKeyedOnPrimaryKey(t *testing.T) {
	table := transactionsTable(t)
	r, err := table.NewRecordValues(int64(3), "fixed", true)
	require.NoError(t, err)

	stmt, err := table.UpdateStatement(r, nil, SQLite)
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "transactions" SET "narrative" = ?, "posted" = ? WHERE "trans_id" = ?;`,
		stmt.SQL)
	assert.Equal(t, []any{"fixed", int64(1), int64(3)}, stmt.Args)
}

func TestTableSchema_DeleteStatement(t *testing.T) {
	table := transactionsTable(t)
	r, err := table.NewRecordValues(int64(3), "x", false)
	require.NoError(t, err)

	stmt, err := table.DeleteStatement(r, nil, SQLite)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "transactions" WHERE "trans_id" = ?;`, stmt.SQL)
	assert.Equal(t, []any{int64(3)}, stmt.Args)
}

func TestTableSchema_KeyedStatementsRequirePrimaryKey(t *testing.T) {
	record := MustRecordSchema("row", NewIntegerField("a"))
	table := MustTableSchema("bare", record)
	r := table.NewRecord()

	var serr *SchemaError
	_, err := table.UpdateStatement(r, nil, SQLite)
	assert.ErrorAs(t, err, &serr)
	_, err = table.DeleteStatement(r, nil, SQLite)
	assert.ErrorAs(t, err, &serr)
	_, err = table.PKSelectStatement(r, nil, SQLite)
	assert.ErrorAs(t, err, &serr)
}

func TestTableSchema_NullPrimaryKeyValueIsUnbound(t *testing.T) {
	table := transactionsTable(t)
	r := table.NewRecord()

	var uerr *UnboundQueryError
	_, err := table.DeleteStatement(r, nil, SQLite)
	assert.ErrorAs(t, err, &uerr)
}

func TestTableSchema_ContextSelectStatement(t *testing.T) {
	table := transactionsTable(t)

	tc := NewContext()
	tc.Set("trans_id", int64(9))

	stmt, err := table.ContextSelectStatement(tc, SQLite, false)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "trans_id", "narrative", "posted" FROM "transactions" WHERE "trans_id" = ?;`,
		stmt.SQL)
	assert.Equal(t, []any{int64(9)}, stmt.Args)
}

func TestTableSchema_ContextSelectGuardsUnlimitedScans(t *testing.T) {
	table := transactionsTable(t)

	var uerr *UnboundQueryError
	_, err := table.ContextSelectStatement(NewContext(), SQLite, false)
	require.ErrorAs(t, err, &uerr)

	stmt, err := table.ContextSelectStatement(NewContext(), SQLite, true)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "trans_id", "narrative", "posted" FROM "transactions";`,
		stmt.SQL)
	assert.Empty(t, stmt.Args)
}

func TestTableSchema_SimpleSelectStatement(t *testing.T) {
	table := transactionsTable(t)

	stmt, err := table.SimpleSelectStatement(SQLite, Eq("posted", true))
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "trans_id", "narrative", "posted" FROM "transactions" WHERE "posted" = ?;`,
		stmt.SQL)
	assert.Equal(t, []any{int64(1)}, stmt.Args)

	var sverr *SchemaViolationError
	_, err = table.SimpleSelectStatement(SQLite, Eq("missing", 1))
	assert.ErrorAs(t, err, &sverr)
}

func TestTableSchema_CreateTableSQL(t *testing.T) {
	table := transactionsTable(t)
	sql := table.CreateTableSQL(SQLite)

	assert.Contains(t, sql, `CREATE TABLE IF NOT EXISTS "transactions"`)
	assert.Contains(t, sql, `"trans_id" INTEGER NOT NULL`)
	assert.Contains(t, sql, `"posted" INTEGER`)
	assert.Contains(t, sql, `CONSTRAINT "transactions_pk" PRIMARY KEY ("trans_id")`)
}
