package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acordia/sqltx/core"
)

func TestPostgresDialect_Markers(t *testing.T) {
	assert.Equal(t, "$1", Dialect.Placeholder(1))
	assert.Equal(t, "$7", Dialect.Placeholder(7))
	assert.Equal(t, "$2, $3, $4", Dialect.Parameters(3, 2))
	assert.Equal(t, `"a" = $3 AND "b" = $4`,
		Dialect.AssignmentList([]string{"a", "b"}, 3, "AND"))
}

func TestPostgresDialect_Capabilities(t *testing.T) {
	assert.True(t, Dialect.SchemaSupport())
	assert.True(t, Dialect.EnumSupport())
	assert.True(t, Dialect.NativeDecimals())
	assert.True(t, Dialect.NativeBooleans())
	assert.True(t, Dialect.NativeUUIDs())

	// pgx binds native types directly.
	assert.Equal(t, true, Dialect.SQLRepr(true))
}

func TestPostgresDialect_BeginSQLCarriesIsolationLevel(t *testing.T) {
	assert.Equal(t, "BEGIN TRANSACTION;", Dialect.BeginSQL(core.DefaultIsolation))
	assert.Equal(t, "BEGIN TRANSACTION ISOLATION LEVEL SERIALIZABLE;",
		Dialect.BeginSQL(core.Serializable))
	assert.Equal(t, "BEGIN TRANSACTION ISOLATION LEVEL READ COMMITTED;",
		Dialect.BeginSQL(core.ReadCommitted))
}

func TestPostgresDialect_SequenceSQL(t *testing.T) {
	create := Dialect.CreateSequenceSQL("ledger.trans_id", 100, 1)
	require.Len(t, create, 1)
	assert.Equal(t,
		`CREATE SEQUENCE IF NOT EXISTS "ledger"."trans_id" START WITH 100 INCREMENT BY 1;`,
		create[0])

	next := Dialect.NextValSQL("trans_id")
	require.Len(t, next, 1)
	assert.Equal(t, `SELECT nextval('"trans_id"');`, next[0])

	reset := Dialect.ResetSequenceSQL("trans_id")
	require.Len(t, reset, 1)
	assert.Equal(t, `ALTER SEQUENCE "trans_id" RESTART;`, reset[0])
}

func TestPostgresDialect_GeneratedStatements(t *testing.T) {
	record := core.MustRecordSchema("transactions_row",
		core.NewIntegerField("trans_id", core.ContextKey("trans_id"), core.NotNull()),
		core.NewTextField("narrative"),
	)
	table := core.MustTableSchema("transactions", record,
		core.WithConstraint(core.NewPrimaryKey("transactions_pk", "trans_id")))

	assert.Equal(t,
		`INSERT INTO "transactions" ("trans_id", "narrative") VALUES ($1, $2);`,
		table.InsertSQL(Dialect))

	r, err := table.NewRecordValues(int64(3), "fixed")
	require.NoError(t, err)
	stmt, err := table.UpdateStatement(r, nil, Dialect)
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "transactions" SET "narrative" = $1 WHERE "trans_id" = $2;`,
		stmt.SQL)
	assert.Equal(t, []any{"fixed", int64(3)}, stmt.Args)
}
