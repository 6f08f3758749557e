// Package core provides the fundamental building blocks of the sqltx library.
// This file defines the transaction orchestrator: a named, ordered set of
// context fields, records, record lists, and query results that are read and
// written as one atomic unit sharing a propagated context.
package core

import (
	"context"

	"github.com/pkg/errors"
)

// attributeKind distinguishes the things a transaction can own.
type attributeKind int

const (
	attrContextField attributeKind = iota
	attrRecord
	attrRecordList
	attrQueryResult
)

// attribute is one named slot of a transaction, in declaration order.
type attribute struct {
	name string
	kind attributeKind

	field      FieldSpec // context field descriptor
	fieldValue any       // context field stored value

	record *Record
	list   *RecordList
	result *QueryResult
}

// Hooks is the strategy set specializing a generic transaction. Every member
// may be nil, which selects the default behaviour. Hook errors abort the
// enclosing scope and surface as VerificationError.
type Hooks struct {
	// PreInsert runs after the context is built and before any INSERT is
	// generated.
	PreInsert func(ctx context.Context, t *Transaction, tc *Context, cur Cursor) error

	// PreUpdate runs after the context is built and before any UPDATE is
	// generated.
	PreUpdate func(ctx context.Context, t *Transaction, tc *Context, cur Cursor) error

	// PreDelete runs after the context is built and before any DELETE is
	// generated.
	PreDelete func(ctx context.Context, t *Transaction, tc *Context, cur Cursor) error

	// PostSelect runs after all attributes have been populated by
	// ContextSelect. The default back-propagates values discovered in the
	// fetched rows into still-null context entries and into the
	// transaction's own fields.
	PostSelect func(ctx context.Context, t *Transaction, tc *Context, cur Cursor) error

	// Verify checks internal consistency after the pre-operation hook (or
	// after PostSelect). The default accepts everything.
	Verify func(t *Transaction, tc *Context) error
}

// Transaction groups entities that must be inserted, updated, or retrieved
// together. It owns its attributes for its lifetime; its own field attributes
// are the authoritative source of the shared context.
type Transaction struct {
	name       string
	attributes []*attribute
	index      map[string]int
	hooks      Hooks
	isolation  IsolationLevel
	dialect    Dialect
}

// TransactionOption customizes a transaction declaration.
type TransactionOption func(*Transaction)

// WithDialect sets the default dialect used when an operation is invoked with
// a nil dialect. It defaults to the bundled SQLite dialect.
func WithDialect(d Dialect) TransactionOption {
	return func(t *Transaction) { t.dialect = d }
}

// WithIsolation sets the isolation level operations open their scope with.
func WithIsolation(level IsolationLevel) TransactionOption {
	return func(t *Transaction) { t.isolation = level }
}

// WithHooks installs the hook strategy set.
func WithHooks(hooks Hooks) TransactionOption {
	return func(t *Transaction) { t.hooks = hooks }
}

// NewTransaction declares an empty named transaction.
func NewTransaction(name string, opts ...TransactionOption) *Transaction {
	t := &Transaction{
		name:      name,
		index:     make(map[string]int),
		isolation: DefaultIsolation,
		dialect:   SQLite,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the transaction's declared name.
func (t *Transaction) Name() string { return t.name }

func (t *Transaction) addAttribute(a *attribute) error {
	if _, ok := t.index[a.name]; ok {
		return &SchemaError{SchemaName: t.name,
			Reason: "duplicate attribute name " + a.name}
	}
	t.index[a.name] = len(t.attributes)
	t.attributes = append(t.attributes, a)
	return nil
}

// AddField attaches a context field attribute. Attachment order is
// significant: it fixes both the context key order and the point at which the
// field's value becomes available to later attributes.
func (t *Transaction) AddField(name string, field FieldSpec) error {
	return t.addAttribute(&attribute{name: name, kind: attrContextField, field: field})
}

// AddRecord attaches a single record (table- or view-bound).
func (t *Transaction) AddRecord(name string, r *Record) error {
	return t.addAttribute(&attribute{name: name, kind: attrRecord, record: r})
}

// AddList attaches a record list. Write operations execute once per contained
// record.
func (t *Transaction) AddList(name string, l *RecordList) error {
	return t.addAttribute(&attribute{name: name, kind: attrRecordList, list: l})
}

// AddQueryResult attaches a query result, populated by ContextSelect.
func (t *Transaction) AddQueryResult(name string, qr *QueryResult) error {
	return t.addAttribute(&attribute{name: name, kind: attrQueryResult, result: qr})
}

func (t *Transaction) attributeNamed(name string) (*attribute, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &SchemaViolationError{SchemaName: t.name, Name: name}
	}
	return t.attributes[i], nil
}

// SetField validates and stores a value on the named context field.
func (t *Transaction) SetField(name string, value any) error {
	a, err := t.attributeNamed(name)
	if err != nil {
		return err
	}
	if a.kind != attrContextField {
		return &SchemaViolationError{SchemaName: t.name, Name: name}
	}
	normalized, err := a.field.Validate(value)
	if err != nil {
		return err
	}
	a.fieldValue = normalized
	return nil
}

// GetField returns the stored value of the named context field.
func (t *Transaction) GetField(name string) (any, error) {
	a, err := t.attributeNamed(name)
	if err != nil {
		return nil, err
	}
	if a.kind != attrContextField {
		return nil, &SchemaViolationError{SchemaName: t.name, Name: name}
	}
	return a.fieldValue, nil
}

// Record returns the record attached under name, or nil.
func (t *Transaction) Record(name string) *Record {
	if a, err := t.attributeNamed(name); err == nil {
		return a.record
	}
	return nil
}

// List returns the record list attached under name, or nil.
func (t *Transaction) List(name string) *RecordList {
	if a, err := t.attributeNamed(name); err == nil {
		return a.list
	}
	return nil
}

// QueryResult returns the query result attached under name, or nil.
func (t *Transaction) QueryResult(name string) *QueryResult {
	if a, err := t.attributeNamed(name); err == nil {
		return a.result
	}
	return nil
}

// GetContext builds the ordered context from the stored values of the
// transaction's own fields, in declaration order, without recalculating
// anything. Only non-nil values contribute entries.
func (t *Transaction) GetContext() *Context {
	tc := NewContext()
	for _, a := range t.attributes {
		if a.kind != attrContextField {
			continue
		}
		if value := a.field.Resolve(a.fieldValue, tc); value != nil {
			tc.Set(contextKeyOf(a.field), value)
		}
	}
	return tc
}

// GetRefreshedContext builds the context by calling Refresh on every own
// field, in declaration order. Refresh is idempotent, so calling this twice
// with no external change yields an identical ordered mapping.
func (t *Transaction) GetRefreshedContext(ctx context.Context, cur Cursor, d Dialect) (*Context, error) {
	d = dialectOrDefault(d, t.dialect)
	tc := NewContext()
	for _, a := range t.attributes {
		if a.kind != attrContextField {
			continue
		}
		value, err := a.field.Refresh(ctx, a.fieldValue, tc, cur, d)
		if err != nil {
			return nil, err
		}
		a.fieldValue = value
		if value != nil {
			tc.Set(contextKeyOf(a.field), value)
		}
	}
	return tc, nil
}

// GetUpdatedContext builds the context by calling Update on every own field,
// in declaration order. Updates may allocate sequence values or read the
// clock; those side effects are externally owned and are not compensated if
// the operation later fails.
func (t *Transaction) GetUpdatedContext(ctx context.Context, cur Cursor, d Dialect) (*Context, error) {
	d = dialectOrDefault(d, t.dialect)
	tc := NewContext()
	for _, a := range t.attributes {
		if a.kind != attrContextField {
			continue
		}
		value, err := a.field.Update(ctx, a.fieldValue, tc, cur, d)
		if err != nil {
			return nil, err
		}
		a.fieldValue = value
		if value != nil {
			tc.Set(contextKeyOf(a.field), value)
		}
	}
	return tc, nil
}

// GetContextFromRecords scans the attached records and lists for stored
// context-bound values and assembles them into a context. It does not try to
// detect inconsistencies between rows: the first non-nil value per key wins.
func (t *Transaction) GetContextFromRecords() *Context {
	tc := NewContext()
	for _, a := range t.attributes {
		switch a.kind {
		case attrRecord:
			a.record.storeContextValues(tc)
		case attrRecordList:
			for r := range a.list.All() {
				r.storeContextValues(tc)
			}
		case attrQueryResult:
			for r := range a.result.All() {
				r.storeContextValues(tc)
			}
		}
	}
	return tc
}

// Copy returns a deep copy of the transaction: attribute values, records, and
// lists are all duplicated so the copies evolve independently.
func (t *Transaction) Copy() *Transaction {
	clone := NewTransaction(t.name, WithDialect(t.dialect), WithIsolation(t.isolation), WithHooks(t.hooks))
	for _, a := range t.attributes {
		copied := &attribute{name: a.name, kind: a.kind, field: a.field, fieldValue: a.fieldValue}
		switch a.kind {
		case attrRecord:
			copied.record = a.record.Copy()
		case attrRecordList:
			copied.list = a.list.Copy()
		case attrQueryResult:
			copied.result = &QueryResult{
				RecordList: a.result.RecordList.Copy(),
				query:      a.result.query.Copy(),
				isolation:  a.result.isolation,
			}
		}
		clone.index[copied.name] = len(clone.attributes)
		clone.attributes = append(clone.attributes, copied)
	}
	return clone
}

// withScope runs fn inside a transaction scope on the cursor, committing on
// success and rolling back on any error. ManualTransactions leaves scope
// management entirely to the caller.
func withScope(ctx context.Context, cur Cursor, level IsolationLevel, fn func() error) error {
	if level == ManualTransactions {
		return fn()
	}
	if err := cur.Begin(ctx, level); err != nil {
		return errors.Wrap(err, "beginning transaction scope")
	}
	if err := fn(); err != nil {
		_ = cur.Rollback(ctx)
		return err
	}
	if err := cur.Commit(ctx); err != nil {
		_ = cur.Rollback(ctx)
		return errors.Wrap(err, "committing transaction scope")
	}
	return nil
}

// runHook executes an overridable hook, mapping a non-nil error to
// VerificationError unless it already is one.
func runHook(hook func(ctx context.Context, t *Transaction, tc *Context, cur Cursor) error,
	ctx context.Context, t *Transaction, tc *Context, cur Cursor) error {
	if hook == nil {
		return nil
	}
	if err := hook(ctx, t, tc, cur); err != nil {
		if verr, ok := err.(*VerificationError); ok {
			return verr
		}
		return &VerificationError{Reason: err.Error()}
	}
	return nil
}

// verify runs the verification hook.
func (t *Transaction) verify(tc *Context) error {
	if t.hooks.Verify == nil {
		return nil
	}
	if err := t.hooks.Verify(t, tc); err != nil {
		if verr, ok := err.(*VerificationError); ok {
			return verr
		}
		return &VerificationError{Reason: err.Error()}
	}
	return nil
}

// writableRelation extracts the writable relation of a record or list
// attribute, or nil for view-backed and bare attributes, which writes skip.
func writableRelation(rel Relation) WritableRelation {
	if wr, ok := rel.(WritableRelation); ok {
		return wr
	}
	return nil
}

// insert drives both insert variants; buildContext distinguishes
// update()-based (InsertNew) from refresh()-based (InsertExisting) context
// construction.
func (t *Transaction) insert(ctx context.Context, cur Cursor, d Dialect,
	buildContext func(context.Context, Cursor, Dialect) (*Context, error)) error {

	d = dialectOrDefault(d, t.dialect)

	// Context construction runs before the scope opens: sequence and clock
	// side effects are externally owned either way.
	tc, err := buildContext(ctx, cur, d)
	if err != nil {
		return err
	}

	return dispatchOperation(ctx, OperationInsert, t, func() error {
		err := withScope(ctx, cur, t.isolation, func() error {
			if err := runHook(t.hooks.PreInsert, ctx, t, tc, cur); err != nil {
				return err
			}
			if err := t.verify(tc); err != nil {
				return err
			}
			for _, a := range t.attributes {
				switch a.kind {
				case attrRecord:
					wr := writableRelation(a.record.Relation())
					if wr == nil {
						continue
					}
					if err := a.record.ApplyContext(tc); err != nil {
						return err
					}
					stmt := wr.InsertStatement(a.record, tc, d)
					if err := exec(ctx, cur, stmt.SQL, stmt.Args); err != nil {
						return err
					}
				case attrRecordList:
					wr := writableRelation(a.list.Relation())
					if wr == nil || a.list.Len() == 0 {
						continue
					}
					if err := a.list.ApplyContext(tc); err != nil {
						return err
					}
					table, ok := wr.(*TableSchema)
					if !ok {
						continue
					}
					sql := table.InsertSQL(d)
					if err := cur.ExecuteMany(ctx, sql, a.list.SQLValues(tc, d)); err != nil {
						return &DatabaseError{SQL: sql, Cause: err}
					}
				}
			}
			return nil
		})
		if err == nil {
			Emit(EventInsert, OperationPayload{Transaction: t, Context: tc})
		}
		return err
	})
}

// InsertNew inserts the transaction's contents after rebuilding the context
// with Update on every own field, in declaration order: sequence values and
// timestamps are allocated here. The whole operation shares one scope and is
// all-or-nothing across every attached attribute.
func (t *Transaction) InsertNew(ctx context.Context, cur Cursor, d Dialect) error {
	return t.insert(ctx, cur, d, t.GetUpdatedContext)
}

// InsertExisting inserts the transaction's contents using Refresh-based,
// non-side-effecting context construction: values already stored are written
// as they are.
func (t *Transaction) InsertExisting(ctx context.Context, cur Cursor, d Dialect) error {
	return t.insert(ctx, cur, d, t.GetRefreshedContext)
}

// checkUpdatePrecondition requires every attached table to carry a primary
// key before any statement is generated.
func (t *Transaction) checkUpdatePrecondition() error {
	for _, a := range t.attributes {
		var rel Relation
		switch a.kind {
		case attrRecord:
			rel = a.record.Relation()
		case attrRecordList:
			rel = a.list.Relation()
		default:
			continue
		}
		if table, ok := rel.(*TableSchema); ok && table.PrimaryKey() == nil {
			return &SchemaError{SchemaName: table.RelationName(),
				Reason: "update requires exactly one primary key constraint"}
		}
	}
	return nil
}

// Update rewrites the rows identified by each record's primary key. The
// context is rebuilt with Refresh; every attached table must have exactly one
// primary key constraint or the operation fails before opening the scope.
func (t *Transaction) Update(ctx context.Context, cur Cursor, d Dialect) error {
	d = dialectOrDefault(d, t.dialect)

	if err := t.checkUpdatePrecondition(); err != nil {
		return err
	}
	tc, err := t.GetRefreshedContext(ctx, cur, d)
	if err != nil {
		return err
	}

	return dispatchOperation(ctx, OperationUpdate, t, func() error {
		err := withScope(ctx, cur, t.isolation, func() error {
			if err := runHook(t.hooks.PreUpdate, ctx, t, tc, cur); err != nil {
				return err
			}
			if err := t.verify(tc); err != nil {
				return err
			}
			for _, a := range t.attributes {
				records, wr := writableRecords(a)
				if wr == nil {
					continue
				}
				for _, r := range records {
					if err := r.ApplyContext(tc); err != nil {
						return err
					}
					stmt, err := wr.UpdateStatement(r, tc, d)
					if err != nil {
						return err
					}
					if err := exec(ctx, cur, stmt.SQL, stmt.Args); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err == nil {
			Emit(EventUpdate, OperationPayload{Transaction: t, Context: tc})
		}
		return err
	})
}

// Delete removes the rows identified by each record's primary key. Deletions
// run in reverse declaration order to keep referential constraints satisfied
// even when they are not deferrable.
func (t *Transaction) Delete(ctx context.Context, cur Cursor, d Dialect) error {
	d = dialectOrDefault(d, t.dialect)

	if err := t.checkUpdatePrecondition(); err != nil {
		return err
	}
	tc, err := t.GetRefreshedContext(ctx, cur, d)
	if err != nil {
		return err
	}

	return dispatchOperation(ctx, OperationDelete, t, func() error {
		err := withScope(ctx, cur, t.isolation, func() error {
			if err := runHook(t.hooks.PreDelete, ctx, t, tc, cur); err != nil {
				return err
			}
			if err := t.verify(tc); err != nil {
				return err
			}
			for i := len(t.attributes) - 1; i >= 0; i-- {
				a := t.attributes[i]
				records, wr := writableRecords(a)
				if wr == nil {
					continue
				}
				for j := len(records) - 1; j >= 0; j-- {
					stmt, err := wr.DeleteStatement(records[j], tc, d)
					if err != nil {
						return err
					}
					if err := exec(ctx, cur, stmt.SQL, stmt.Args); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err == nil {
			Emit(EventDelete, OperationPayload{Transaction: t, Context: tc})
		}
		return err
	})
}

// writableRecords flattens a record or list attribute into the records a
// write operation touches, together with their writable relation. Both
// results are nil for context fields, query results, and view-backed
// attributes.
func writableRecords(a *attribute) ([]*Record, WritableRelation) {
	switch a.kind {
	case attrRecord:
		if wr := writableRelation(a.record.Relation()); wr != nil {
			return []*Record{a.record}, wr
		}
	case attrRecordList:
		if wr := writableRelation(a.list.Relation()); wr != nil {
			records := make([]*Record, 0, a.list.Len())
			for r := range a.list.All() {
				records = append(records, r)
			}
			return records, wr
		}
	}
	return nil, nil
}

// ContextSelect retrieves every attached record, list, and query result using
// the context built from the transaction's own fields. Each relation's WHERE
// clause conjoins its context-matched columns; with no matches the select
// fails with UnboundQueryError unless allowUnlimited is set. After
// population, the post-select hook back-propagates values discovered in the
// fetched rows, then verification runs.
func (t *Transaction) ContextSelect(ctx context.Context, cur Cursor, d Dialect, allowUnlimited bool) error {
	d = dialectOrDefault(d, t.dialect)

	return dispatchOperation(ctx, OperationSelect, t, func() error {
		var tc *Context
		err := withScope(ctx, cur, t.isolation, func() error {
			var err error
			tc, err = t.GetRefreshedContext(ctx, cur, d)
			if err != nil {
				return err
			}
			for _, a := range t.attributes {
				switch a.kind {
				case attrRecord:
					rel := a.record.Relation()
					if rel == nil {
						continue
					}
					stmt, err := rel.ContextSelectStatement(tc, d, allowUnlimited)
					if err != nil {
						return err
					}
					if err := t.selectIntoRecord(ctx, cur, stmt, a.record); err != nil {
						return err
					}
				case attrRecordList:
					rel := a.list.Relation()
					if rel == nil {
						continue
					}
					a.list.Clear()
					stmt, err := rel.ContextSelectStatement(tc, d, allowUnlimited)
					if err != nil {
						return err
					}
					if err := selectIntoList(ctx, cur, stmt, a.list); err != nil {
						return err
					}
				case attrQueryResult:
					a.result.Clear()
					stmt, err := a.result.ContextSelectStatement(tc, d, allowUnlimited)
					if err != nil {
						return err
					}
					if err := selectIntoList(ctx, cur, stmt, a.result.RecordList); err != nil {
						return err
					}
				}
			}
			if t.hooks.PostSelect != nil {
				if err := runHook(t.hooks.PostSelect, ctx, t, tc, cur); err != nil {
					return err
				}
			} else {
				t.defaultPostSelect(tc)
			}
			return t.verify(tc)
		})
		if err == nil {
			Emit(EventSelect, OperationPayload{Transaction: t, Context: tc})
		}
		return err
	})
}

// selectIntoRecord executes a statement and stores the first returned row in
// r, clearing it when the result set is empty.
func (t *Transaction) selectIntoRecord(ctx context.Context, cur Cursor, stmt Statement, r *Record) error {
	rows, err := cur.Execute(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return &DatabaseError{SQL: stmt.SQL, Cause: err}
	}
	defer rows.Close()
	if rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return &DatabaseError{SQL: stmt.SQL, Cause: err}
		}
		return r.SetValues(values)
	}
	if err := rows.Err(); err != nil {
		return &DatabaseError{SQL: stmt.SQL, Cause: err}
	}
	r.Clear()
	return nil
}

// selectIntoList executes a statement and appends every returned row to l.
func selectIntoList(ctx context.Context, cur Cursor, stmt Statement, l *RecordList) error {
	rows, err := cur.Execute(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return &DatabaseError{SQL: stmt.SQL, Cause: err}
	}
	defer rows.Close()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return &DatabaseError{SQL: stmt.SQL, Cause: err}
		}
		if err := l.AppendValues(values...); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &DatabaseError{SQL: stmt.SQL, Cause: err}
	}
	return nil
}

// defaultPostSelect copies values discovered only through the fetched rows
// back into still-null context entries, then lets the transaction's own
// fields adopt them. Later steps and the caller then see, for example, a
// transaction number that was identified by the rows rather than supplied up
// front.
func (t *Transaction) defaultPostSelect(tc *Context) {
	discovered := t.GetContextFromRecords()
	for _, key := range discovered.Keys() {
		if !tc.HasValue(key) {
			tc.Set(key, discovered.Get(key))
		}
	}
	for _, a := range t.attributes {
		if a.kind != attrContextField {
			continue
		}
		key := contextKeyOf(a.field)
		if a.fieldValue == nil && tc.HasValue(key) {
			if normalized, err := a.field.Validate(tc.Get(key)); err == nil {
				a.fieldValue = normalized
			}
		}
	}
}
