package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/kkkppp/p2proto/internal/infrastructure/database"
)

// txContextKey is the key for storing transaction in context
type txContextKey struct{}

// TransactionManager scopes work to a database transaction carried in the
// context. Failed work is rolled back and never retried.
type TransactionManager struct {
	db *database.Connection
}

// NewTransactionManager creates a new TransactionManager
func NewTransactionManager(db *database.Connection) *TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction runs fn inside a transaction whose handle travels in the
// context passed to fn. When ctx already carries a transaction, fn joins it
// and the outer caller decides the outcome. The transaction is rolled back if
// fn returns an error or panics and committed otherwise.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return tm.WithTransactionOptions(ctx, nil, fn)
}

// WithTransactionOptions is WithTransaction with explicit options such as
// the isolation level
func (tm *TransactionManager) WithTransactionOptions(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	if ExtractTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := tm.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Ensure rollback on panic
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(InjectTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Executor returns the context's transaction or, without one, the pool
func (tm *TransactionManager) Executor(ctx context.Context) database.Executor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return tm.db
}

// Acquire hands out a handle for a unit of work together with its release
// function. Inside a transaction the handle is the transaction itself and
// release does nothing; otherwise a dedicated pooled connection is returned
// and release closes it.
func (tm *TransactionManager) Acquire(ctx context.Context) (database.Executor, func(), error) {
	if tx := ExtractTx(ctx); tx != nil {
		return tx, func() {}, nil
	}
	conn, err := tm.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, func() { _ = conn.Close() }, nil
}

// Gorm returns a gorm handle bound to ctx. When ctx carries a transaction
// the handle runs its statements on it.
func (tm *TransactionManager) Gorm(ctx context.Context) (*gorm.DB, error) {
	g, err := tm.db.Gorm()
	if err != nil {
		return nil, err
	}
	tx := ExtractTx(ctx)
	if tx == nil {
		return g.WithContext(ctx), nil
	}
	session := g.Session(&gorm.Session{Context: ctx, NewDB: true})
	session.Statement.ConnPool = tx
	return session, nil
}

// Connection returns the underlying connection
func (tm *TransactionManager) Connection() *database.Connection {
	return tm.db
}

// InjectTx injects a transaction into the context
func InjectTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// ExtractTx extracts a transaction from the context
func ExtractTx(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}
