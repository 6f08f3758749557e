// Package core provides the fundamental building blocks of the sqltx library.
// This file defines the typed field descriptors that make up record schemas.
// A field knows its SQL name and column type, optionally tracks one context
// entry, and distinguishes idempotent refresh from side-effecting update when
// a value is (re)derived.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldSpec is the contract of a typed schema slot. Implementations are
// immutable once declared; per-record values live in the owning Record's slot
// table, never on the FieldSpec itself.
type FieldSpec interface {
	// Name is the attribute name the field was declared under.
	Name() string

	// SQLName is the column name used in generated SQL. Defaults to Name.
	SQLName() string

	// ContextKey names the context entry this field tracks, or "" if the
	// field is not context-bound.
	ContextKey() string

	// Nullable reports whether nil is an acceptable value.
	Nullable() bool

	// SQLType returns the column type in the given dialect, without any
	// NOT NULL suffix.
	SQLType(d Dialect) string

	// Validate checks a candidate value against the field's value type and
	// returns it in normalized form, or a ValidationError.
	Validate(value any) (any, error)

	// Resolve returns the value to use for SQL generation: the context
	// entry named by ContextKey when present with a non-nil value
	// (context is authoritative over prior local state), otherwise the
	// stored value unchanged.
	Resolve(stored any, tc *Context) any

	// Refresh idempotently re-derives the value from the context and the
	// stored state. Calling it twice with no intervening external change
	// yields the same value.
	Refresh(ctx context.Context, stored any, tc *Context, cur Cursor, d Dialect) (any, error)

	// Update may consult an external generator (sequence, clock) to
	// produce a new value; it is not required to be idempotent. If the
	// field is context-bound the new value is written into tc. Generator
	// failures surface as GenerationError.
	Update(ctx context.Context, stored any, tc *Context, cur Cursor, d Dialect) (any, error)
}

// fieldBase carries the declaration data shared by every field type and the
// default refresh/update behaviour.
type fieldBase struct {
	name       string
	sqlName    string
	contextKey string
	nullable   bool
}

// FieldOption customizes a field declaration.
type FieldOption func(*fieldBase)

// SQLName overrides the column name used in generated SQL.
func SQLName(name string) FieldOption {
	return func(b *fieldBase) { b.sqlName = name }
}

// NotNull forbids nil values for the field.
func NotNull() FieldOption {
	return func(b *fieldBase) { b.nullable = false }
}

// ContextKey binds the field to the named context entry.
func ContextKey(key string) FieldOption {
	return func(b *fieldBase) { b.contextKey = key }
}

func newFieldBase(name string, opts ...FieldOption) fieldBase {
	base := fieldBase{name: name, sqlName: name, nullable: true}
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

func (b *fieldBase) Name() string       { return b.name }
func (b *fieldBase) SQLName() string    { return b.sqlName }
func (b *fieldBase) ContextKey() string { return b.contextKey }
func (b *fieldBase) Nullable() bool     { return b.nullable }

func (b *fieldBase) Resolve(stored any, tc *Context) any {
	if b.contextKey != "" && tc != nil && tc.HasValue(b.contextKey) {
		return tc.Get(b.contextKey)
	}
	return stored
}

func (b *fieldBase) Refresh(_ context.Context, stored any, tc *Context, _ Cursor, _ Dialect) (any, error) {
	return b.Resolve(stored, tc), nil
}

func (b *fieldBase) Update(ctx context.Context, stored any, tc *Context, cur Cursor, d Dialect) (any, error) {
	return b.Refresh(ctx, stored, tc, cur, d)
}

// checkNull applies the shared nullability rule before type-specific checks.
func (b *fieldBase) checkNull() (any, error) {
	if b.nullable {
		return nil, nil
	}
	return nil, &ValidationError{FieldName: b.name, Reason: "value cannot be null"}
}

// IntegerField holds 64-bit integers. All Go integer kinds are accepted and
// normalized to int64.
type IntegerField struct {
	fieldBase
}

// NewIntegerField declares an integer field.
func NewIntegerField(name string, opts ...FieldOption) *IntegerField {
	return &IntegerField{fieldBase: newFieldBase(name, opts...)}
}

func (f *IntegerField) SQLType(Dialect) string { return "INTEGER" }

func (f *IntegerField) Validate(value any) (any, error) {
	if value == nil {
		return f.checkNull()
	}
	v, ok := asInt64(value)
	if !ok {
		return nil, &ValidationError{FieldName: f.name,
			Reason: fmt.Sprintf("value of type %T is not an integer", value)}
	}
	return v, nil
}

// asInt64 widens any Go integer kind to int64. Floats with an integral value
// are accepted so that JSON-decoded numbers remain usable.
func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// TextField holds strings of unbounded length.
type TextField struct {
	fieldBase
}

// NewTextField declares a text field.
func NewTextField(name string, opts ...FieldOption) *TextField {
	return &TextField{fieldBase: newFieldBase(name, opts...)}
}

func (f *TextField) SQLType(Dialect) string { return "TEXT" }

func (f *TextField) Validate(value any) (any, error) {
	if value == nil {
		return f.checkNull()
	}
	v, ok := value.(string)
	if !ok {
		return nil, &ValidationError{FieldName: f.name,
			Reason: fmt.Sprintf("value of type %T is not a string", value)}
	}
	return v, nil
}

// CharField holds strings up to a declared maximum length.
type CharField struct {
	fieldBase
	maxLength int
}

// NewCharField declares a bounded string field.
func NewCharField(name string, maxLength int, opts ...FieldOption) *CharField {
	return &CharField{fieldBase: newFieldBase(name, opts...), maxLength: maxLength}
}

func (f *CharField) SQLType(Dialect) string {
	return fmt.Sprintf("VARCHAR(%d)", f.maxLength)
}

func (f *CharField) Validate(value any) (any, error) {
	if value == nil {
		return f.checkNull()
	}
	v, ok := value.(string)
	if !ok {
		return nil, &ValidationError{FieldName: f.name,
			Reason: fmt.Sprintf("value of type %T is not a string", value)}
	}
	if len(v) > f.maxLength {
		return nil, &ValidationError{FieldName: f.name,
			Reason: fmt.Sprintf("string of length %d exceeds maximum length %d", len(v), f.maxLength)}
	}
	return v, nil
}

// BooleanField holds booleans. Dialects without native booleans store them as
// 0/1 integers via SQLRepr.
type BooleanField struct {
	fieldBase
}

// NewBooleanField declares a boolean field.
func NewBooleanField(name string, opts ...FieldOption) *BooleanField {
	return &BooleanField{fieldBase: newFieldBase(name, opts...)}
}

func (f *BooleanField) SQLType(d Dialect) string {
	if d != nil && !d.NativeBooleans() {
		return "INTEGER"
	}
	return "BOOLEAN"
}

func (f *BooleanField) Validate(value any) (any, error) {
	if value == nil {
		return f.checkNull()
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case int64:
		// Round trip from dialects that store booleans as integers.
		return v != 0, nil
	}
	return nil, &ValidationError{FieldName: f.name,
		Reason: fmt.Sprintf("value of type %T is not a boolean", value)}
}

// NumericField holds fixed-precision decimals backed by decimal.Decimal.
type NumericField struct {
	fieldBase
	precision   int
	scale       int
	allowFloats bool
}

// NumericOption customizes a NumericField beyond the shared FieldOptions.
type NumericOption func(*NumericField)

// AllowFloats permits assignment of float64 values, which are converted to
// decimals. Off by default because binary floats rarely carry exact amounts.
func AllowFloats() NumericOption {
	return func(f *NumericField) { f.allowFloats = true }
}

// NewNumericField declares a decimal field with the given precision and scale.
func NewNumericField(name string, precision, scale int, numOpts []NumericOption, opts ...FieldOption) *NumericField {
	field := &NumericField{
		fieldBase: newFieldBase(name, opts...),
		precision: precision,
		scale:     scale,
	}
	for _, opt := range numOpts {
		opt(field)
	}
	return field
}

func (f *NumericField) SQLType(Dialect) string {
	return fmt.Sprintf("NUMERIC(%d, %d)", f.precision, f.scale)
}

func (f *NumericField) Validate(value any) (any, error) {
	if value == nil {
		return f.checkNull()
	}
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		dec, err := decimal.NewFromString(v)
		if err != nil {
			return nil, &ValidationError{FieldName: f.name,
				Reason: fmt.Sprintf("string %q is not a valid decimal", v)}
		}
		return dec, nil
	case float64:
		if !f.allowFloats {
			return nil, &ValidationError{FieldName: f.name,
				Reason: "float values are not accepted unless AllowFloats is set"}
		}
		return decimal.NewFromFloat(v), nil
	}
	if i, ok := asInt64(value); ok {
		return decimal.NewFromInt(i), nil
	}
	return nil, &ValidationError{FieldName: f.name,
		Reason: fmt.Sprintf("value of type %T is not a decimal", value)}
}

// TimestampField holds time.Time values. With auto-now enabled, Update stamps
// the current UTC time from the wall clock, which is a side effect and not
// idempotent; Refresh never touches the clock.
type TimestampField struct {
	fieldBase
	autoNow bool
	now     func() time.Time
}

// TimestampOption customizes a TimestampField beyond the shared FieldOptions.
type TimestampOption func(*TimestampField)

// AutoNow makes Update stamp the current time.
func AutoNow() TimestampOption {
	return func(f *TimestampField) { f.autoNow = true }
}

// WithClock substitutes the wall clock, which tests use to freeze time.
func WithClock(now func() time.Time) TimestampOption {
	return func(f *TimestampField) { f.now = now }
}

// NewTimestampField declares a timestamp field.
func NewTimestampField(name string, tsOpts []TimestampOption, opts ...FieldOption) *TimestampField {
	field := &TimestampField{
		fieldBase: newFieldBase(name, opts...),
		now:       time.Now,
	}
	for _, opt := range tsOpts {
		opt(field)
	}
	return field
}

func (f *TimestampField) SQLType(Dialect) string { return "TIMESTAMP" }

func (f *TimestampField) Validate(value any) (any, error) {
	if value == nil {
		return f.checkNull()
	}
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, &ValidationError{FieldName: f.name,
				Reason: fmt.Sprintf("string %q is not a valid RFC 3339 timestamp", v)}
		}
		return t.UTC(), nil
	}
	return nil, &ValidationError{FieldName: f.name,
		Reason: fmt.Sprintf("value of type %T is not a timestamp", value)}
}

func (f *TimestampField) Update(ctx context.Context, stored any, tc *Context, cur Cursor, d Dialect) (any, error) {
	if !f.autoNow {
		return f.Refresh(ctx, stored, tc, cur, d)
	}
	value := f.now().UTC()
	if f.contextKey != "" && tc != nil {
		tc.Set(f.contextKey, value)
	}
	return value, nil
}

// UUIDField holds UUID values, stored as text on dialects without a native
// UUID type.
type UUIDField struct {
	fieldBase
}

// NewUUIDField declares a UUID field.
func NewUUIDField(name string, opts ...FieldOption) *UUIDField {
	return &UUIDField{fieldBase: newFieldBase(name, opts...)}
}

func (f *UUIDField) SQLType(d Dialect) string {
	if d != nil && d.NativeUUIDs() {
		return "UUID"
	}
	return "CHAR(36)"
}

func (f *UUIDField) Validate(value any) (any, error) {
	if value == nil {
		return f.checkNull()
	}
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, &ValidationError{FieldName: f.name,
				Reason: fmt.Sprintf("string %q is not a valid UUID", v)}
		}
		return id, nil
	}
	return nil, &ValidationError{FieldName: f.name,
		Reason: fmt.Sprintf("value of type %T is not a UUID", value)}
}

// EnumField holds one of a fixed set of string members. Dialects with native
// enum support use the declared SQL type name; others fall back to TEXT.
type EnumField struct {
	fieldBase
	enumSQLName string
	members     map[string]struct{}
}

// NewEnumField declares an enumerated field over the given members.
func NewEnumField(name, enumSQLName string, members []string, opts ...FieldOption) *EnumField {
	memberSet := make(map[string]struct{}, len(members))
	for _, m := range members {
		memberSet[m] = struct{}{}
	}
	return &EnumField{
		fieldBase:   newFieldBase(name, opts...),
		enumSQLName: enumSQLName,
		members:     memberSet,
	}
}

func (f *EnumField) SQLType(d Dialect) string {
	if d != nil && d.EnumSupport() {
		return f.enumSQLName
	}
	return "TEXT"
}

func (f *EnumField) Validate(value any) (any, error) {
	if value == nil {
		return f.checkNull()
	}
	v, ok := value.(string)
	if !ok {
		return nil, &ValidationError{FieldName: f.name,
			Reason: fmt.Sprintf("value of type %T is not an enum member", value)}
	}
	if _, ok := f.members[v]; !ok {
		return nil, &ValidationError{FieldName: f.name,
			Reason: fmt.Sprintf("%q is not a member of enum %s", v, f.enumSQLName)}
	}
	return v, nil
}

// SequenceIntField holds integers allocated from a database sequence. Refresh
// never touches the sequence; Update allocates the next value through the
// cursor, stores it, and writes it into the context. Allocation is an
// externally-owned side effect: a value consumed by an update that later
// fails verification is not reclaimed.
type SequenceIntField struct {
	fieldBase
	sequence *Sequence
}

// NewSequenceIntField declares an integer field fed by seq. Unless overridden,
// the field's context key defaults to the sequence name.
func NewSequenceIntField(name string, seq *Sequence, opts ...FieldOption) *SequenceIntField {
	base := newFieldBase(name, opts...)
	if base.contextKey == "" {
		base.contextKey = seq.Name()
	}
	return &SequenceIntField{fieldBase: base, sequence: seq}
}

func (f *SequenceIntField) SQLType(Dialect) string { return "BIGINT" }

func (f *SequenceIntField) Validate(value any) (any, error) {
	if value == nil {
		return f.checkNull()
	}
	v, ok := asInt64(value)
	if !ok {
		return nil, &ValidationError{FieldName: f.name,
			Reason: fmt.Sprintf("value of type %T is not an integer", value)}
	}
	return v, nil
}

func (f *SequenceIntField) Update(ctx context.Context, stored any, tc *Context, cur Cursor, d Dialect) (any, error) {
	value, err := f.sequence.NextVal(ctx, cur, d)
	if err != nil {
		return nil, &GenerationError{FieldName: f.name, Cause: err}
	}
	if f.contextKey != "" && tc != nil {
		tc.Set(f.contextKey, value)
	}
	return value, nil
}

// RowEnumField numbers the rows of a record list during SQL generation. Each
// resolution increments a counter held in the context under the declared key,
// starting from the configured number. The stored value is ignored.
type RowEnumField struct {
	fieldBase
	startingNumber int64
}

// NewRowEnumField declares a row-numbering field counting through the context
// entry named key.
func NewRowEnumField(name, key string, startingNumber int64, opts ...FieldOption) *RowEnumField {
	opts = append(opts, ContextKey(key))
	return &RowEnumField{
		fieldBase:      newFieldBase(name, opts...),
		startingNumber: startingNumber,
	}
}

func (f *RowEnumField) SQLType(Dialect) string { return "INTEGER" }

func (f *RowEnumField) Validate(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	v, ok := asInt64(value)
	if !ok {
		return nil, &ValidationError{FieldName: f.name,
			Reason: fmt.Sprintf("value of type %T is not an integer", value)}
	}
	return v, nil
}

func (f *RowEnumField) Resolve(stored any, tc *Context) any {
	if tc == nil {
		return stored
	}
	if current, ok := tc.Get(f.contextKey).(int64); ok {
		tc.Set(f.contextKey, current+1)
		return current + 1
	}
	tc.Set(f.contextKey, f.startingNumber)
	return f.startingNumber
}

func (f *RowEnumField) Refresh(_ context.Context, stored any, tc *Context, _ Cursor, _ Dialect) (any, error) {
	return f.Resolve(stored, tc), nil
}
