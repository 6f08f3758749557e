package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/acordia/sqltx/core"
)

//region PostgresCursor

// PostgresCursor implements core.Cursor on top of a pgx connection pool.
// Statements run against the open pgx.Tx when a scope has been begun, and
// directly against the pool otherwise. One cursor serves one transaction
// scope at a time; concurrent work needs independent cursors.
type PostgresCursor struct {
	pool        *pgxpool.Pool
	ownsPool    bool
	transaction pgx.Tx
}

var _ core.Cursor = (*PostgresCursor)(nil)

// NewPostgresCursor connects a new pool from the connection string and wraps
// it in a cursor that owns the pool. Close releases it.
func NewPostgresCursor(ctx context.Context, connString string) (*PostgresCursor, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, errors.Wrap(err, "connecting postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pinging postgres pool")
	}
	return &PostgresCursor{pool: pool, ownsPool: true}, nil
}

// NewPostgresCursorFromPool wraps an existing pool. The caller keeps
// ownership of the pool; Close leaves it open.
func NewPostgresCursorFromPool(pool *pgxpool.Pool) *PostgresCursor {
	return &PostgresCursor{pool: pool}
}

// Ping verifies the underlying pool is reachable.
func (cursor *PostgresCursor) Ping(ctx context.Context) error {
	return cursor.pool.Ping(ctx)
}

// Close rolls back any open scope and, when the cursor owns the pool,
// releases it.
func (cursor *PostgresCursor) Close(ctx context.Context) error {
	if cursor.transaction != nil {
		_ = cursor.transaction.Rollback(ctx)
		cursor.transaction = nil
	}
	if cursor.ownsPool {
		cursor.pool.Close()
	}
	return nil
}

// Execute runs a parametrized statement inside the open scope when there is
// one, or directly against the pool otherwise. pgx.Rows satisfies core.Rows.
func (cursor *PostgresCursor) Execute(ctx context.Context, sqlQuery string, args []any) (core.Rows, error) {
	if cursor.transaction != nil {
		return cursor.transaction.Query(ctx, sqlQuery, args...)
	}
	return cursor.pool.Query(ctx, sqlQuery, args...)
}

// ExecuteMany queues one execution per argument set into a single pgx batch
// and sends it in one round trip.
func (cursor *PostgresCursor) ExecuteMany(ctx context.Context, sqlQuery string, argSets [][]any) error {
	if len(argSets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, args := range argSets {
		batch.Queue(sqlQuery, args...)
	}
	var batchResults pgx.BatchResults
	if cursor.transaction != nil {
		batchResults = cursor.transaction.SendBatch(ctx, batch)
	} else {
		batchResults = cursor.pool.SendBatch(ctx, batch)
	}
	defer batchResults.Close()
	for range argSets {
		if _, err := batchResults.Exec(); err != nil {
			return err
		}
	}
	return batchResults.Close()
}

// isolationOptions maps the portable isolation levels onto pgx options.
func isolationOptions(level core.IsolationLevel) pgx.TxOptions {
	switch level {
	case core.ReadUncommitted:
		return pgx.TxOptions{IsoLevel: pgx.ReadUncommitted}
	case core.ReadCommitted:
		return pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	case core.RepeatableRead:
		return pgx.TxOptions{IsoLevel: pgx.RepeatableRead}
	case core.Serializable:
		return pgx.TxOptions{IsoLevel: pgx.Serializable}
	default:
		return pgx.TxOptions{}
	}
}

// Begin opens a scope at the requested isolation level.
func (cursor *PostgresCursor) Begin(ctx context.Context, level core.IsolationLevel) error {
	if cursor.transaction != nil {
		return errors.New("postgres cursor already has an open transaction scope")
	}
	transaction, err := cursor.pool.BeginTx(ctx, isolationOptions(level))
	if err != nil {
		return err
	}
	cursor.transaction = transaction
	return nil
}

// Commit makes the open scope durable.
func (cursor *PostgresCursor) Commit(ctx context.Context) error {
	if cursor.transaction == nil {
		return errors.New("postgres cursor has no open transaction scope")
	}
	err := cursor.transaction.Commit(ctx)
	cursor.transaction = nil
	return err
}

// Rollback abandons the open scope. Rolling back with no open scope is a
// no-op so cleanup paths can call it unconditionally.
func (cursor *PostgresCursor) Rollback(ctx context.Context) error {
	if cursor.transaction == nil {
		return nil
	}
	err := cursor.transaction.Rollback(ctx)
	cursor.transaction = nil
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

//endregion
