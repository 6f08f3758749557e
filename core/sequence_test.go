package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_NextValYieldsLastStatementValue(t *testing.T) {
	seq := NewSequence("trans_id", StartsAt(100))

	cur := &stubCursor{handler: func(sql string, _ []any) ([][]any, error) {
		if strings.HasPrefix(sql, "SELECT") {
			return [][]any{{int64(100)}}, nil
		}
		return nil, nil
	}}

	value, err := seq.NextVal(context.Background(), cur, SQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(100), value)
	// Advance first, read second.
	require.Len(t, cur.executed, 2)
	assert.Contains(t, cur.executed[0], "UPDATE")
	assert.Contains(t, cur.executed[1], "SELECT")
}

func TestSequence_NextValRejectsNonInteger(t *testing.T) {
	seq := NewSequence("trans_id")
	cur := &stubCursor{handler: func(sql string, _ []any) ([][]any, error) {
		if strings.HasPrefix(sql, "SELECT") {
			return [][]any{{"oops"}}, nil
		}
		return nil, nil
	}}

	_, err := seq.NextVal(context.Background(), cur, SQLite)
	assert.Error(t, err)
}

func TestSequence_CreateRunsEveryStatement(t *testing.T) {
	seq := NewSequence("trans_id", StartsAt(10), IncrementsBy(5))
	cur := &stubCursor{}

	require.NoError(t, seq.Create(context.Background(), cur, SQLite))
	require.Len(t, cur.executed, 2)
	assert.Contains(t, cur.executed[1], "VALUES (10, 5, 5)")
}

func TestSequence_QualifiedNameFollowsSchema(t *testing.T) {
	schema := NewSQLSchema("ledger")
	seq := NewSequence("trans_id", InSchema(schema))

	assert.Equal(t, "ledger_trans_id", seq.QualifiedName(SQLite))
}
