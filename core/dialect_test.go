package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDialect_Markers(t *testing.T) {
	assert.Equal(t, "?", SQLite.Placeholder(1))
	assert.Equal(t, "?", SQLite.Placeholder(9))
	assert.Equal(t, "?, ?, ?", SQLite.Parameters(3, 1))
	assert.Equal(t, "", SQLite.Parameters(0, 1))
	assert.Equal(t, `"a" = ?, "b" = ?`, SQLite.AssignmentList([]string{"a", "b"}, 1, ","))
	assert.Equal(t, `"a" = ? AND "b" = ?`, SQLite.AssignmentList([]string{"a", "b"}, 1, "AND"))
}

func TestSQLiteDialect_QuoteIdentifierEscapesQuotes(t *testing.T) {
	assert.Equal(t, `"weird""name"`, SQLite.QuoteIdentifier(`weird"name`))
}

func TestSQLiteDialect_SQLRepr(t *testing.T) {
	assert.Equal(t, int64(1), SQLite.SQLRepr(true))
	assert.Equal(t, int64(0), SQLite.SQLRepr(false))
	assert.Equal(t, "12.34", SQLite.SQLRepr(decimal.RequireFromString("12.34")))

	id := uuid.New()
	assert.Equal(t, id.String(), SQLite.SQLRepr(id))

	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T12:00:00Z", SQLite.SQLRepr(stamp))

	assert.Equal(t, int64(5), SQLite.SQLRepr(int64(5)))
	assert.Nil(t, SQLite.SQLRepr(nil))
}

func TestSQLiteDialect_SequenceEmulation(t *testing.T) {
	create := SQLite.CreateSequenceSQL("trans_id", 100, 1)
	require.Len(t, create, 2)
	assert.Contains(t, create[0], `CREATE TABLE IF NOT EXISTS "trans_id"`)
	assert.Contains(t, create[1], "VALUES (100, 1, 99)")

	next := SQLite.NextValSQL("trans_id")
	require.Len(t, next, 2)
	assert.Contains(t, next[0], "lastval + interval")
	assert.Contains(t, next[1], `SELECT lastval FROM "trans_id"`)

	reset := SQLite.ResetSequenceSQL("trans_id")
	require.Len(t, reset, 1)
	assert.Contains(t, reset[0], "start - interval")
}

func TestIsolationLevelSQL(t *testing.T) {
	sql, ok := IsolationLevelSQL(Serializable)
	require.True(t, ok)
	assert.Equal(t, "SERIALIZABLE", sql)

	_, ok = IsolationLevelSQL(DefaultIsolation)
	assert.False(t, ok)
	_, ok = IsolationLevelSQL(ManualTransactions)
	assert.False(t, ok)
}
