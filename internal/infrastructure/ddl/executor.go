package ddl

import (
	"context"
	"fmt"
	"log"

	"github.com/kkkppp/p2proto/internal/infrastructure/persistence"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/query"
)

// Executor runs DDL commands. It never begins or commits a transaction:
// inside one the statements run on it, otherwise on a pooled connection.
type Executor struct {
	tm       *persistence.TransactionManager
	verifier *Verifier
}

// NewExecutor creates a new Executor. A nil verifier skips the MySQL parse
// check.
func NewExecutor(tm *persistence.TransactionManager, verifier *Verifier) *Executor {
	return &Executor{tm: tm, verifier: verifier}
}

// Execute renders cmd for the connection's dialect, runs the statements in
// order and returns them. Driver failures come back as *errors.DatabaseError.
func (e *Executor) Execute(ctx context.Context, cmd *CreateTableCommand) ([]string, error) {
	dialect := e.tm.Connection().Dialect()
	statements, err := cmd.Statements(dialect)
	if err != nil {
		return nil, err
	}
	if e.verifier != nil && dialect == query.MySQL {
		for _, stmt := range statements {
			if err := e.verifier.VerifyCreateTable(stmt, cmd.Table.Name(), len(cmd.Columns)); err != nil {
				return nil, fmt.Errorf("generated DDL for %s rejected: %w", cmd.Table.Name(), err)
			}
		}
	}

	exec, release, err := e.tm.Acquire(ctx)
	if err != nil {
		return nil, appErrors.NewDatabaseError("acquire connection", err)
	}
	defer release()

	executed := make([]string, 0, len(statements))
	for _, stmt := range statements {
		log.Printf("📐 Executing DDL for %s: %s", cmd.Table.Name(), stmt)
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			log.Printf("❌ Failed to create table %s: %v", cmd.Table.Name(), err)
			return executed, appErrors.NewDatabaseError("create table "+cmd.Table.Name(), err)
		}
		executed = append(executed, stmt)
	}
	log.Printf("✅ DDL executed successfully for %s", cmd.Table.Name())
	return executed, nil
}
