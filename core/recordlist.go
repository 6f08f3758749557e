// Package core provides the fundamental building blocks of the sqltx library.
// This file defines record lists: ordered, growable collections of records of
// one declared type, with lazy per-field projection.
package core

import (
	"encoding/json"
	"fmt"
	"iter"
)

// RecordList holds an ordered sequence of records sharing one schema. Where a
// transaction accepts a single table attribute it accepts a table-typed list
// transparently; operations then execute once per contained record.
type RecordList struct {
	schema   *RecordSchema
	relation Relation
	records  []*Record
}

// NewList instantiates an empty list of bare records of this schema.
func (s *RecordSchema) NewList() *RecordList {
	return &RecordList{schema: s}
}

func newRecordList(relation Relation) *RecordList {
	return &RecordList{schema: relation.Schema(), relation: relation}
}

// Schema returns the declared record schema of the list.
func (l *RecordList) Schema() *RecordSchema { return l.schema }

// Relation returns the table or view the contained records map to, or nil.
func (l *RecordList) Relation() Relation { return l.relation }

// Len returns the number of contained records.
func (l *RecordList) Len() int { return len(l.records) }

// At returns the record at index i.
func (l *RecordList) At(i int) *Record { return l.records[i] }

func (l *RecordList) checkRecord(r *Record) error {
	if r.schema != l.schema {
		return &SchemaError{SchemaName: l.schema.name,
			Reason: fmt.Sprintf("cannot hold a record of schema %s", r.schema.name)}
	}
	return nil
}

// Append adds a record to the end of the list. Records of any other schema
// are rejected with a SchemaError.
func (l *RecordList) Append(r *Record) error {
	if err := l.checkRecord(r); err != nil {
		return err
	}
	l.records = append(l.records, r)
	return nil
}

// AppendValues instantiates a record from one value per field and appends it.
func (l *RecordList) AppendValues(values ...any) error {
	record := l.schema.NewRecord()
	record.relation = l.relation
	if err := record.SetValues(values); err != nil {
		return err
	}
	l.records = append(l.records, record)
	return nil
}

// Extend appends every record in rs, validating each first so the list is
// unchanged on failure.
func (l *RecordList) Extend(rs ...*Record) error {
	for _, r := range rs {
		if err := l.checkRecord(r); err != nil {
			return err
		}
	}
	l.records = append(l.records, rs...)
	return nil
}

// Insert places a record at index i, shifting later records.
func (l *RecordList) Insert(i int, r *Record) error {
	if err := l.checkRecord(r); err != nil {
		return err
	}
	l.records = append(l.records[:i], append([]*Record{r}, l.records[i:]...)...)
	return nil
}

// Set replaces the record at index i.
func (l *RecordList) Set(i int, r *Record) error {
	if err := l.checkRecord(r); err != nil {
		return err
	}
	l.records[i] = r
	return nil
}

// Delete removes the record at index i.
func (l *RecordList) Delete(i int) {
	l.records = append(l.records[:i], l.records[i+1:]...)
}

// Clear removes every record.
func (l *RecordList) Clear() {
	l.records = l.records[:0]
}

// Copy returns an independent list containing copies of every record.
func (l *RecordList) Copy() *RecordList {
	clone := &RecordList{schema: l.schema, relation: l.relation,
		records: make([]*Record, 0, len(l.records))}
	for _, r := range l.records {
		clone.records = append(clone.records, r.Copy())
	}
	return clone
}

// All returns an iterator over the contained records in list order.
func (l *RecordList) All() iter.Seq[*Record] {
	return func(yield func(*Record) bool) {
		for _, r := range l.records {
			if !yield(r) {
				return
			}
		}
	}
}

// Project returns a lazy, restartable iterator over the named field's stored
// value across all contained records, in list order. Unknown names fail with
// SchemaViolationError.
func (l *RecordList) Project(fieldName string) (iter.Seq[any], error) {
	i, ok := l.schema.index[fieldName]
	if !ok {
		return nil, &SchemaViolationError{SchemaName: l.schema.name, Name: fieldName}
	}
	return func(yield func(any) bool) {
		for _, r := range l.records {
			if !yield(r.values[i]) {
				return
			}
		}
	}, nil
}

// SQLValues returns one context-resolved, dialect-adapted parameter list per
// contained record, suitable for ExecuteMany.
func (l *RecordList) SQLValues(tc *Context, d Dialect) [][]any {
	result := make([][]any, 0, len(l.records))
	for _, r := range l.records {
		result = append(result, r.SQLValues(tc, d))
	}
	return result
}

// ApplyContext propagates context values into every contained record.
func (l *RecordList) ApplyContext(tc *Context) error {
	for _, r := range l.records {
		if err := r.ApplyContext(tc); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON encodes the list as a JSON array of record objects.
func (l *RecordList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.records)
}
