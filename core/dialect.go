// Package core provides the fundamental building blocks of the sqltx library.
// This file defines the Dialect contract that isolates backend-specific SQL
// generation, and the bundled dialect targeting embedded SQLite databases.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IsolationLevel specifies the isolation guarantees requested when a
// transaction scope is opened. ManualTransactions suppresses all automatic
// scope management, leaving BEGIN/COMMIT/ROLLBACK entirely to the caller.
type IsolationLevel int

const (
	// ManualTransactions disables automatic transaction management.
	ManualTransactions IsolationLevel = iota - 1
	// DefaultIsolation uses whatever the backend considers its default.
	DefaultIsolation
	ReadUncommitted
	ReadCommitted
	RepeatableRead
	Serializable
)

// isolationLevelSQL holds the standard SQL spelling of each isolation level.
var isolationLevelSQL = map[IsolationLevel]string{
	ReadUncommitted: "READ UNCOMMITTED",
	ReadCommitted:   "READ COMMITTED",
	RepeatableRead:  "REPEATABLE READ",
	Serializable:    "SERIALIZABLE",
}

// IsolationLevelSQL returns the standard SQL spelling of a concrete isolation
// level, reporting false for DefaultIsolation and ManualTransactions.
func IsolationLevelSQL(level IsolationLevel) (string, bool) {
	sql, ok := isolationLevelSQL[level]
	return sql, ok
}

// Dialect describes the backend-specific rules needed to turn schemas into
// executable SQL: identifier quoting, bind-parameter markers, value
// adaptation, and statement quirks such as sequence emulation.
//
// Dialects are injected per call and default once at construction of the
// object that needs them; they are never read from global state.
type Dialect interface {
	// Name identifies the dialect, e.g. "sqlite" or "postgres".
	Name() string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string

	// Placeholder returns the bind-parameter marker for the 1-based
	// position given, e.g. "?" or "$3".
	Placeholder(position int) string

	// Parameters returns count comma-separated markers starting at the
	// given 1-based position, e.g. "$2, $3, $4".
	Parameters(count, start int) string

	// AssignmentList returns "col1=<marker> SEP col2=<marker> ..." with
	// markers numbered from start. The separator is typically "," for SET
	// clauses and "AND" for WHERE clauses.
	AssignmentList(columns []string, start int, sep string) string

	// SchemaSupport reports whether the backend implements schema
	// namespaces. Dialects without support fall back to prefixing object
	// names with the schema name and an underscore.
	SchemaSupport() bool

	// EnumSupport reports whether the backend has native enumerated types.
	EnumSupport() bool

	// NativeDecimals reports whether arbitrary-precision decimals can be
	// passed through unchanged; otherwise they are stored as text.
	NativeDecimals() bool

	// NativeBooleans reports whether booleans can be passed through
	// unchanged; otherwise they are stored as 0/1 integers.
	NativeBooleans() bool

	// NativeUUIDs reports whether UUID values can be passed through
	// unchanged; otherwise they are stored as text.
	NativeUUIDs() bool

	// SQLRepr adapts a stored field value into the representation the
	// backend driver expects as a bound parameter.
	SQLRepr(value any) any

	// BeginSQL returns the statement that opens a transaction scope at
	// the given isolation level.
	BeginSQL(level IsolationLevel) string

	// CommitSQL returns the statement that commits the current scope.
	CommitSQL() string

	// RollbackSQL returns the statement that aborts the current scope.
	RollbackSQL() string

	// CreateSequenceSQL returns the statements that create a sequence
	// (or its emulation) with the given qualified name.
	CreateSequenceSQL(qualifiedName string, start, interval int64) []string

	// NextValSQL returns the statements that advance the sequence; the
	// last statement must yield the new value as a single-column row.
	NextValSQL(qualifiedName string) []string

	// ResetSequenceSQL returns the statements that restart the sequence.
	ResetSequenceSQL(qualifiedName string) []string
}

// SQLiteDialect is the bundled default dialect. It targets the lightweight
// embedded SQLite engine: "?" positional markers, no schema namespaces, no
// native decimals, booleans, enums, or UUIDs, and sequences emulated with a
// single-row counter table.
type SQLiteDialect struct{}

// SQLite is the ready-to-use instance of the bundled dialect. Constructors
// that accept a Dialect default to it when given nil.
var SQLite Dialect = &SQLiteDialect{}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *SQLiteDialect) Placeholder(int) string { return "?" }

func (d *SQLiteDialect) Parameters(count, _ int) string {
	if count <= 0 {
		return ""
	}
	return strings.Repeat("?, ", count-1) + "?"
}

func (d *SQLiteDialect) AssignmentList(columns []string, _ int, sep string) string {
	partList := make([]string, 0, len(columns))
	for _, column := range columns {
		partList = append(partList, d.QuoteIdentifier(column)+" = ?")
	}
	return strings.Join(partList, " "+sep+" ")
}

func (d *SQLiteDialect) SchemaSupport() bool  { return false }
func (d *SQLiteDialect) EnumSupport() bool    { return false }
func (d *SQLiteDialect) NativeDecimals() bool { return false }
func (d *SQLiteDialect) NativeBooleans() bool { return false }
func (d *SQLiteDialect) NativeUUIDs() bool    { return false }

func (d *SQLiteDialect) SQLRepr(value any) any {
	switch v := value.(type) {
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case decimal.Decimal:
		return v.String()
	case uuid.UUID:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return value
	}
}

func (d *SQLiteDialect) BeginSQL(level IsolationLevel) string {
	// SQLite transactions are always serializable; the requested level is
	// accepted but cannot be weakened.
	return "BEGIN TRANSACTION;"
}

func (d *SQLiteDialect) CommitSQL() string   { return "COMMIT;" }
func (d *SQLiteDialect) RollbackSQL() string { return "ROLLBACK;" }

// Sequences are emulated with a one-row table holding the last issued value.
func (d *SQLiteDialect) CreateSequenceSQL(qualifiedName string, start, interval int64) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (start BIGINT, interval BIGINT, lastval BIGINT);",
			d.QuoteIdentifier(qualifiedName)),
		fmt.Sprintf("INSERT INTO %s VALUES (%d, %d, %d);",
			d.QuoteIdentifier(qualifiedName), start, interval, start-interval),
	}
}

func (d *SQLiteDialect) NextValSQL(qualifiedName string) []string {
	return []string{
		fmt.Sprintf("UPDATE %s SET lastval = lastval + interval;", d.QuoteIdentifier(qualifiedName)),
		fmt.Sprintf("SELECT lastval FROM %s;", d.QuoteIdentifier(qualifiedName)),
	}
}

func (d *SQLiteDialect) ResetSequenceSQL(qualifiedName string) []string {
	return []string{
		fmt.Sprintf("UPDATE %s SET lastval = start - interval;", d.QuoteIdentifier(qualifiedName)),
	}
}

// dialectOrDefault resolves a possibly-nil dialect parameter against the
// fallback chosen at construction time.
func dialectOrDefault(d, fallback Dialect) Dialect {
	if d != nil {
		return d
	}
	if fallback != nil {
		return fallback
	}
	return SQLite
}
