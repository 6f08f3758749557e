package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entrySchema(t *testing.T) *RecordSchema {
	t.Helper()
	schema, err := NewRecordSchema("entry",
		NewIntegerField("trans_id", ContextKey("trans_id")),
		NewTextField("narrative"),
		NewBooleanField("posted"),
	)
	require.NoError(t, err)
	return schema
}

func TestNewRecordSchema_RejectsDuplicateFieldNames(t *testing.T) {
	_, err := NewRecordSchema("entry",
		NewIntegerField("trans_id"),
		NewTextField("trans_id"),
	)
	var serr *SchemaError
	assert.ErrorAs(t, err, &serr)
}

func TestRecord_SetGetAndSchemaViolation(t *testing.T) {
	r := entrySchema(t).NewRecord()

	require.NoError(t, r.Set("narrative", "opening balance"))
	v, err := r.Get("narrative")
	require.NoError(t, err)
	assert.Equal(t, "opening balance", v)

	var sverr *SchemaViolationError
	err = r.Set("no_such_field", 1)
	require.ErrorAs(t, err, &sverr)
	assert.Equal(t, "no_such_field", sverr.Name)

	_, err = r.Get("no_such_field")
	assert.ErrorAs(t, err, &sverr)

	// Assignments are validated against the field type.
	var verr *ValidationError
	err = r.Set("posted", "yes")
	assert.ErrorAs(t, err, &verr)
}

func TestRecord_SetValuesRequiresOnePerField(t *testing.T) {
	r := entrySchema(t).NewRecord()

	err := r.SetValues([]any{int64(1), "note"})
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)

	require.NoError(t, r.SetValues([]any{int64(1), "note", true}))
	assert.Equal(t, int64(1), r.MustGet("trans_id"))
}

func TestRecord_SetValuesNilLeavesNotNullSlotUnset(t *testing.T) {
	schema, err := NewRecordSchema("line",
		NewIntegerField("trans_id", ContextKey("trans_id"), NotNull()),
		NewIntegerField("amount"),
	)
	require.NoError(t, err)
	r := schema.NewRecord()

	// Rows of a NOT NULL context-filled column are built with nil and
	// completed from the context before statement generation.
	require.NoError(t, r.SetValues([]any{nil, int64(500)}))
	assert.Nil(t, r.MustGet("trans_id"))

	// Direct assignment stays strict.
	var verr *ValidationError
	assert.ErrorAs(t, r.Set("trans_id", nil), &verr)

	tc := NewContext()
	tc.Set("trans_id", int64(101))
	require.NoError(t, r.ApplyContext(tc))
	assert.Equal(t, int64(101), r.MustGet("trans_id"))
}

func TestRecord_ValuesContextOverridesStored(t *testing.T) {
	r := entrySchema(t).NewRecord()
	require.NoError(t, r.Set("trans_id", 5))
	require.NoError(t, r.Set("narrative", "n"))

	tc := NewContext()
	tc.Set("trans_id", int64(7))

	values := r.Values(tc)
	assert.Equal(t, int64(7), values[0])
	// The stored value is untouched until ApplyContext.
	assert.Equal(t, int64(5), r.MustGet("trans_id"))

	require.NoError(t, r.ApplyContext(tc))
	assert.Equal(t, int64(7), r.MustGet("trans_id"))
}

func TestRecord_ApplyContextValidates(t *testing.T) {
	r := entrySchema(t).NewRecord()
	tc := NewContext()
	tc.Set("trans_id", "not-an-integer")

	var verr *ValidationError
	assert.ErrorAs(t, r.ApplyContext(tc), &verr)
}

func TestRecord_StoreContextValuesDoesNotOverwrite(t *testing.T) {
	r := entrySchema(t).NewRecord()
	require.NoError(t, r.Set("trans_id", 5))

	tc := NewContext()
	r.storeContextValues(tc)
	assert.Equal(t, int64(5), tc.Get("trans_id"))

	require.NoError(t, r.Set("trans_id", 6))
	r.storeContextValues(tc)
	assert.Equal(t, int64(5), tc.Get("trans_id"))
}

func TestRecord_CopyIsIndependent(t *testing.T) {
	r := entrySchema(t).NewRecord()
	require.NoError(t, r.Set("narrative", "a"))

	clone := r.Copy()
	require.NoError(t, clone.Set("narrative", "b"))

	assert.Equal(t, "a", r.MustGet("narrative"))
	assert.Equal(t, "b", clone.MustGet("narrative"))
}

func TestRecord_MarshalJSONKeepsDeclarationOrder(t *testing.T) {
	r := entrySchema(t).NewRecord()
	require.NoError(t, r.Set("trans_id", 1))
	require.NoError(t, r.Set("posted", true))

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"trans_id":1,"narrative":null,"posted":true}`, string(data))
}
