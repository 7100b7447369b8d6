package services

import (
	"github.com/kkkppp/p2proto/internal/infrastructure/database"
	"github.com/kkkppp/p2proto/internal/infrastructure/ddl"
	"github.com/kkkppp/p2proto/internal/infrastructure/persistence"
	"github.com/kkkppp/p2proto/pkg/formula"
)

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.Connection

	TxManager  *persistence.TransactionManager
	EventBus   *EventBus
	Components *ComponentService
	Tables     *TableService
	Records    *RecordService
	Formulas   *FormulaService
}

// Options tune the wiring of a ServiceManager
type Options struct {
	// VerifyDDL parses generated MySQL DDL before running it
	VerifyDDL bool
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *database.Connection, opts Options) *ServiceManager {
	sm := &ServiceManager{
		db: db,
	}

	// Initialize services in dependency order
	sm.TxManager = persistence.NewTransactionManager(db)
	sm.EventBus = NewEventBus()
	sm.Components = NewComponentService(sm.TxManager, persistence.NewComponentRepository(sm.TxManager))

	var verifier *ddl.Verifier
	if opts.VerifyDDL {
		verifier = ddl.NewVerifier()
	}
	executor := ddl.NewExecutor(sm.TxManager, verifier)

	sm.Tables = NewTableService(sm.TxManager, persistence.NewTableRepository(sm.TxManager), sm.Components, executor, sm.EventBus)
	sm.Records = NewRecordService(sm.Tables, persistence.NewRecordRepository(sm.TxManager), sm.EventBus)
	sm.Formulas = NewFormulaService(sm.Tables, formula.NewEngine(), db.Dialect())

	return sm
}

// DB returns the database connection the services run on
func (sm *ServiceManager) DB() *database.Connection {
	return sm.db
}
