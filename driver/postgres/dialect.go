// Package postgres adapts the sqltx core to PostgreSQL using the pgx driver.
package postgres

import (
	"fmt"
	"strings"

	"github.com/acordia/sqltx/core"
)

//region PostgresDialect

// PostgresDialect generates PostgreSQL flavored SQL: "$n" bind-parameter
// markers, native schemas, enumerated types, decimals, booleans, and UUIDs,
// and real sequences.
type PostgresDialect struct{}

// Dialect is the ready-to-use instance.
var Dialect core.Dialect = &PostgresDialect{}

func (dialect *PostgresDialect) Name() string { return "postgres" }

func (dialect *PostgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (dialect *PostgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

func (dialect *PostgresDialect) Parameters(count, start int) string {
	partList := make([]string, 0, count)
	for i := 0; i < count; i++ {
		partList = append(partList, fmt.Sprintf("$%d", start+i))
	}
	return strings.Join(partList, ", ")
}

func (dialect *PostgresDialect) AssignmentList(columns []string, start int, sep string) string {
	partList := make([]string, 0, len(columns))
	for i, column := range columns {
		partList = append(partList, fmt.Sprintf("%s = $%d", dialect.QuoteIdentifier(column), start+i))
	}
	return strings.Join(partList, " "+sep+" ")
}

func (dialect *PostgresDialect) SchemaSupport() bool  { return true }
func (dialect *PostgresDialect) EnumSupport() bool    { return true }
func (dialect *PostgresDialect) NativeDecimals() bool { return true }
func (dialect *PostgresDialect) NativeBooleans() bool { return true }
func (dialect *PostgresDialect) NativeUUIDs() bool    { return true }

// SQLRepr passes values through unchanged: pgx binds time.Time, uuid.UUID,
// decimal.Decimal, and bool natively.
func (dialect *PostgresDialect) SQLRepr(value any) any { return value }

func (dialect *PostgresDialect) BeginSQL(level core.IsolationLevel) string {
	if sql, ok := core.IsolationLevelSQL(level); ok {
		return "BEGIN TRANSACTION ISOLATION LEVEL " + sql + ";"
	}
	return "BEGIN TRANSACTION;"
}

func (dialect *PostgresDialect) CommitSQL() string   { return "COMMIT;" }
func (dialect *PostgresDialect) RollbackSQL() string { return "ROLLBACK;" }

// quoteQualified quotes each dot-separated part of a possibly
// schema-qualified object name.
func (dialect *PostgresDialect) quoteQualified(qualifiedName string) string {
	parts := strings.Split(qualifiedName, ".")
	for i, part := range parts {
		parts[i] = dialect.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

func (dialect *PostgresDialect) CreateSequenceSQL(qualifiedName string, start, interval int64) []string {
	return []string{
		fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START WITH %d INCREMENT BY %d;",
			dialect.quoteQualified(qualifiedName), start, interval),
	}
}

func (dialect *PostgresDialect) NextValSQL(qualifiedName string) []string {
	return []string{
		fmt.Sprintf("SELECT nextval('%s');", dialect.quoteQualified(qualifiedName)),
	}
}

func (dialect *PostgresDialect) ResetSequenceSQL(qualifiedName string) []string {
	return []string{
		fmt.Sprintf("ALTER SEQUENCE %s RESTART;", dialect.quoteQualified(qualifiedName)),
	}
}

//endregion
