package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balanceQuery(t *testing.T) *Query {
	t.Helper()
	result := MustRecordSchema("balance_row",
		NewIntegerField("account"),
		NewIntegerField("balance"),
	)
	q, err := NewQuery("balances",
		`SELECT account, SUM(amount) FROM lines WHERE trans_id = {trans_id} AND amount > {threshold} GROUP BY account;`,
		result,
		NewIntegerField("trans_id"),
		NewIntegerField("threshold"),
	)
	require.NoError(t, err)
	return q
}

func TestNewQuery_RejectsUnknownPlaceholders(t *testing.T) {
	result := MustRecordSchema("r", NewIntegerField("x"))
	_, err := NewQuery("bad", `SELECT {nope};`, result, NewIntegerField("x"))
	var qerr *QueryParameterError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "nope", qerr.Placeholder)
}

func TestNewQuery_RejectsDuplicateParameters(t *testing.T) {
	result := MustRecordSchema("r", NewIntegerField("x"))
	_, err := NewQuery("bad", `SELECT 1;`, result,
		NewIntegerField("p"), NewIntegerField("p"))
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)
}

func TestQuery_SQLReplacesPlaceholdersInFirstOccurrenceOrder(t *testing.T) {
	q := balanceQuery(t)

	assert.Equal(t,
		`SELECT account, SUM(amount) FROM lines WHERE trans_id = ? AND amount > ? GROUP BY account;`,
		q.SQL(SQLite))

	require.NoError(t, q.SetParam("trans_id", 7))
	require.NoError(t, q.SetParam("threshold", 100))
	assert.Equal(t, []any{int64(7), int64(100)}, q.Args(SQLite))
}

func TestQuery_RepeatedPlaceholderBindsOncePerOccurrence(t *testing.T) {
	result := MustRecordSchema("r", NewIntegerField("x"))
	q, err := NewQuery("self_join",
		`SELECT a.x FROM t a JOIN t b ON a.id = {id} WHERE b.id = {id};`,
		result, NewIntegerField("id"))
	require.NoError(t, err)

	require.NoError(t, q.SetParam("id", 4))
	stmt := q.Statement(SQLite)
	assert.Equal(t, `SELECT a.x FROM t a JOIN t b ON a.id = ? WHERE b.id = ?;`, stmt.SQL)
	assert.Equal(t, []any{int64(4), int64(4)}, stmt.Args)
}

func TestQuery_SetParamValidates(t *testing.T) {
	q := balanceQuery(t)

	var sverr *SchemaViolationError
	assert.ErrorAs(t, q.SetParam("missing", 1), &sverr)

	var verr *ValidationError
	assert.ErrorAs(t, q.SetParam("trans_id", "seven"), &verr)
}

func TestQuery_SetContextAdoptsMatchingEntries(t *testing.T) {
	q := balanceQuery(t)

	tc := NewContext()
	tc.Set("trans_id", int64(12))
	tc.Set("unrelated", "ignored")

	require.NoError(t, q.SetContext(tc))
	v, err := q.Param("trans_id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	// The other parameter stays unbound.
	threshold, err := q.Param("threshold")
	require.NoError(t, err)
	assert.Nil(t, threshold)
}

func TestQuery_CopyHoldsIndependentValues(t *testing.T) {
	q := balanceQuery(t)
	require.NoError(t, q.SetParam("trans_id", 1))

	clone := q.Copy()
	require.NoError(t, clone.SetParam("trans_id", 2))

	v, _ := q.Param("trans_id")
	assert.Equal(t, int64(1), v)
	v, _ = clone.Param("trans_id")
	assert.Equal(t, int64(2), v)
}

func TestQueryResult_RefreshPopulatesFromRows(t *testing.T) {
	q := balanceQuery(t)
	qr := NewQueryResult(q)
	require.NoError(t, qr.Query().SetParam("trans_id", 7))
	require.NoError(t, qr.Query().SetParam("threshold", 0))

	cur := &stubCursor{handler: func(sql string, args []any) ([][]any, error) {
		return [][]any{{int64(10), int64(500)}, {int64(11), int64(-500)}}, nil
	}}

	require.NoError(t, qr.Refresh(context.Background(), cur, SQLite))
	require.Equal(t, 2, qr.Len())
	assert.Equal(t, int64(10), qr.At(0).MustGet("account"))
	assert.Equal(t, int64(-500), qr.At(1).MustGet("balance"))
	assert.Equal(t, 1, cur.begins)
	assert.Equal(t, 1, cur.commits)

	// Refresh replaces rather than appends.
	require.NoError(t, qr.Refresh(context.Background(), cur, SQLite))
	assert.Equal(t, 2, qr.Len())
}

func TestQueryResult_OwnsAQueryCopy(t *testing.T) {
	q := balanceQuery(t)
	qr := NewQueryResult(q)

	require.NoError(t, qr.Query().SetParam("trans_id", 9))
	original, err := q.Param("trans_id")
	require.NoError(t, err)
	assert.Nil(t, original)
}
