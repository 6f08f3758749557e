package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordList_AppendRejectsForeignSchemas(t *testing.T) {
	a := MustRecordSchema("a", NewIntegerField("x"))
	b := MustRecordSchema("b", NewIntegerField("x"))

	list := a.NewList()
	require.NoError(t, list.Append(a.NewRecord()))

	var serr *SchemaError
	assert.ErrorAs(t, list.Append(b.NewRecord()), &serr)
	assert.Equal(t, 1, list.Len())
}

func TestRecordList_ExtendIsAtomic(t *testing.T) {
	a := MustRecordSchema("a", NewIntegerField("x"))
	b := MustRecordSchema("b", NewIntegerField("x"))

	list := a.NewList()
	err := list.Extend(a.NewRecord(), b.NewRecord())
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 0, list.Len())
}

func TestRecordList_InsertSetDelete(t *testing.T) {
	schema := MustRecordSchema("a", NewIntegerField("x"))
	list := schema.NewList()
	require.NoError(t, list.AppendValues(int64(1)))
	require.NoError(t, list.AppendValues(int64(3)))

	middle, err := schema.NewRecordValues(int64(2))
	require.NoError(t, err)
	require.NoError(t, list.Insert(1, middle))
	assert.Equal(t, int64(2), list.At(1).MustGet("x"))

	replacement, err := schema.NewRecordValues(int64(9))
	require.NoError(t, err)
	require.NoError(t, list.Set(0, replacement))
	assert.Equal(t, int64(9), list.At(0).MustGet("x"))

	list.Delete(1)
	assert.Equal(t, 2, list.Len())
	assert.Equal(t, int64(3), list.At(1).MustGet("x"))
}

func TestRecordList_ProjectIsLazyAndRestartable(t *testing.T) {
	schema := MustRecordSchema("a", NewIntegerField("x"), NewTextField("y"))
	list := schema.NewList()
	for i := 1; i <= 3; i++ {
		require.NoError(t, list.AppendValues(int64(i), "n"))
	}

	project, err := list.Project("x")
	require.NoError(t, err)

	var first []any
	for v := range project {
		first = append(first, v)
	}
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, first)

	// The same iterator can be walked again, and early exit is safe.
	for v := range project {
		assert.Equal(t, int64(1), v)
		break
	}

	var sverr *SchemaViolationError
	_, err = list.Project("missing")
	assert.ErrorAs(t, err, &sverr)
}

func TestRecordList_SQLValuesResolvesContextPerRecord(t *testing.T) {
	schema := MustRecordSchema("line",
		NewIntegerField("trans_id", ContextKey("trans_id")),
		NewRowEnumField("row_num", "row_counter", 1),
	)
	list := schema.NewList()
	require.NoError(t, list.AppendValues(nil, nil))
	require.NoError(t, list.AppendValues(nil, nil))

	tc := NewContext()
	tc.Set("trans_id", int64(7))

	values := list.SQLValues(tc, SQLite)
	require.Len(t, values, 2)
	assert.Equal(t, []any{int64(7), int64(1)}, values[0])
	assert.Equal(t, []any{int64(7), int64(2)}, values[1])
}

func TestRecordList_MarshalJSON(t *testing.T) {
	schema := MustRecordSchema("a", NewIntegerField("x"))
	list := schema.NewList()
	require.NoError(t, list.AppendValues(int64(1)))
	require.NoError(t, list.AppendValues(int64(2)))

	data, err := json.Marshal(list)
	require.NoError(t, err)
	assert.Equal(t, `[{"x":1},{"x":2}]`, string(data))
}
