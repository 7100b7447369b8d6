package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/kkkppp/p2proto/internal/domain"
	"github.com/kkkppp/p2proto/internal/domain/events"
	"github.com/kkkppp/p2proto/internal/domain/ports"
	"github.com/kkkppp/p2proto/internal/domain/schema"
	"github.com/kkkppp/p2proto/internal/infrastructure/ddl"
	"github.com/kkkppp/p2proto/internal/infrastructure/persistence"
	"github.com/kkkppp/p2proto/pkg/constants"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
)

// CreateTableResult is the outcome of a table creation. A database failure
// during the change is reported here with Status FAILED rather than as an
// error.
type CreateTableResult struct {
	ComponentID uuid.UUID             `json:"componentId"`
	Status      domain.HistoryStatus  `json:"status"`
	Table       *schema.TableMetadata `json:"table,omitempty"`
	DDL         []string              `json:"ddl,omitempty"`
	Message     string                `json:"error,omitempty"`
	Err         error                 `json:"-"`
}

// TableService creates tables and serves their metadata. Loaded metadata is
// immutable, so it is cached and shared between requests.
type TableService struct {
	tm         *persistence.TransactionManager
	tables     *persistence.TableRepository
	components *ComponentService
	executor   *ddl.Executor
	events     ports.EventPublisher

	mu     sync.RWMutex
	byID   map[uuid.UUID]*schema.TableMetadata
	byName map[string]*schema.TableMetadata
}

// Ensure TableService implements ports.TableCatalog at compile time
var _ ports.TableCatalog = (*TableService)(nil)

// NewTableService creates a new TableService. events may be nil.
func NewTableService(tm *persistence.TransactionManager, tables *persistence.TableRepository, components *ComponentService, executor *ddl.Executor, publisher ports.EventPublisher) *TableService {
	return &TableService{
		tm:         tm,
		tables:     tables,
		components: components,
		executor:   executor,
		events:     publisher,
		byID:       make(map[uuid.UUID]*schema.TableMetadata),
		byName:     make(map[string]*schema.TableMetadata),
	}
}

// DefaultColumns are the columns of a table created from a name alone: an
// auto-increment id and the two timestamps the record engine maintains
func DefaultColumns() []schema.ColumnMetadata {
	return []schema.ColumnMetadata{
		{Name: constants.FieldID, Label: "ID", Domain: fieldtypes.AutoIncrement, PrimaryKey: true},
		{Name: constants.FieldCreatedAt, Label: "Created At", Domain: fieldtypes.DateTime,
			DefaultValue: schema.ClientDefault(schema.ValueFormula, schema.OnCreate, schema.CurrentTimestamp)},
		{Name: constants.FieldUpdatedAt, Label: "Updated At", Domain: fieldtypes.DateTime,
			DefaultValue: schema.ClientDefault(schema.ValueFormula, schema.OnUpdate, schema.CurrentTimestamp)},
	}
}

// CreateSimpleTable creates a table that has only the default columns
func (s *TableService) CreateSimpleTable(ctx context.Context, name, label, pluralLabel string, userID int64) (*CreateTableResult, error) {
	table, err := schema.NewTable(schema.TableSpec{
		Name:        name,
		Label:       label,
		PluralLabel: pluralLabel,
		Type:        schema.TableStandard,
		Columns:     DefaultColumns(),
	})
	if err != nil {
		return nil, err
	}
	return s.CreateTable(ctx, table, userID)
}

// CreateTable runs the table lifecycle:
//
//  1. a LOCKED table component is committed on its own
//  2. in one transaction the DDL runs, every column gets an ACTIVE field
//     component, the catalog rows are written and the table component is
//     activated with the executed DDL
//  3. if that transaction fails the table component is deactivated in a
//     fresh transaction
//
// Database failures in step 2 are returned in the result with Status FAILED.
// Any other failure is returned as an error after the component is
// deactivated.
func (s *TableService) CreateTable(ctx context.Context, table *schema.TableMetadata, userID int64) (*CreateTableResult, error) {
	if constants.IsSystemTable(table.Name()) {
		return nil, appErrors.NewValidationError("name", "'"+table.Name()+"' is reserved")
	}
	if _, err := s.tables.FindByName(ctx, table.Name()); err == nil {
		return nil, appErrors.NewConflictError("table", "name", table.Name())
	} else if !appErrors.IsNotFound(err) {
		return nil, err
	}

	cmd, err := ddl.NewCreateTableCommand(table)
	if err != nil {
		return nil, err
	}
	// render once up front so a bad default fails before anything is locked
	if _, err := cmd.Statements(s.tm.Connection().Dialect()); err != nil {
		return nil, err
	}

	state, err := json.Marshal(table)
	if err != nil {
		return nil, err
	}
	component, err := s.components.CreateLocked(ctx, ComponentRequest{
		Type:     domain.ComponentTable,
		UserID:   userID,
		NewState: state,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("📐 Creating table %s (component %s)", table.Name(), component.ID)

	var (
		statements []string
		created    *schema.TableMetadata
	)
	err = s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		statements, err = s.executor.Execute(ctx, cmd)
		if err != nil {
			return err
		}

		columns := table.Columns()
		for i := range columns {
			field, err := s.components.CreateActive(ctx, ComponentRequest{
				Type:     domain.ComponentField,
				ParentID: uuid.NullUUID{UUID: component.ID, Valid: true},
				UserID:   userID,
			})
			if err != nil {
				return err
			}
			columns[i].ID = field.ID
		}
		created, err = table.WithID(component.ID).WithColumns(columns)
		if err != nil {
			return err
		}
		if err := s.tables.CreateMetadata(ctx, created); err != nil {
			return err
		}
		return s.components.MarkSuccess(ctx, component.ID, userID, statements)
	})

	if err != nil {
		log.Printf("❌ Failed to create table %s: %v", table.Name(), err)
		if failErr := s.components.MarkFailure(context.WithoutCancel(ctx), component.ID, userID); failErr != nil {
			log.Printf("⚠️ Failed to mark component %s as failed: %v", component.ID, failErr)
			return nil, failErr
		}
		s.publish(ctx, events.TableCreateFailed, TableEventPayload{
			TableID: component.ID, Name: table.Name(), UserID: userID, Error: err.Error(),
		})
		if !appErrors.IsDatabase(err) {
			return nil, err
		}
		return &CreateTableResult{ComponentID: component.ID, Status: domain.HistoryFailed, Message: err.Error(), Err: err}, nil
	}

	s.remember(created)
	log.Printf("✅ Table %s created", created.Name())
	s.publish(ctx, events.TableCreated, TableEventPayload{
		TableID: created.ID(), Name: created.Name(), DDL: statements, UserID: userID,
	})
	return &CreateTableResult{
		ComponentID: component.ID,
		Status:      domain.HistoryCompleted,
		Table:       created,
		DDL:         statements,
	}, nil
}

// GetTable returns a table by id
func (s *TableService) GetTable(ctx context.Context, id uuid.UUID) (*schema.TableMetadata, error) {
	s.mu.RLock()
	table, ok := s.byID[id]
	s.mu.RUnlock()
	if ok {
		return table, nil
	}

	table, err := s.tables.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(table)
	return table, nil
}

// GetTableByName returns a table by its physical name
func (s *TableService) GetTableByName(ctx context.Context, name string) (*schema.TableMetadata, error) {
	s.mu.RLock()
	table, ok := s.byName[name]
	s.mu.RUnlock()
	if ok {
		return table, nil
	}

	table, err := s.tables.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	s.remember(table)
	return table, nil
}

// TableIDs maps every table name to its id
func (s *TableService) TableIDs(ctx context.Context) (map[string]uuid.UUID, error) {
	return s.tables.FindAll(ctx)
}

// ListTables returns every table without columns, ordered by plural label
func (s *TableService) ListTables(ctx context.Context) ([]schema.TableSummary, error) {
	return s.tables.FindAllWithLabels(ctx)
}

// UpdateLabels renames a table for display; the physical name never changes
func (s *TableService) UpdateLabels(ctx context.Context, id uuid.UUID, label, pluralLabel string, userID int64) (*schema.TableMetadata, error) {
	if err := s.tables.UpdateLabels(ctx, id, label, pluralLabel); err != nil {
		return nil, err
	}
	s.forget(id)

	table, err := s.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TableLabelsUpdated, TableEventPayload{TableID: id, Name: table.Name(), UserID: userID})
	return table, nil
}

// RefreshCache drops every cached table
func (s *TableService) RefreshCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[uuid.UUID]*schema.TableMetadata)
	s.byName = make(map[string]*schema.TableMetadata)
}

func (s *TableService) remember(table *schema.TableMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[table.ID()] = table
	s.byName[table.Name()] = table
}

func (s *TableService) forget(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if table, ok := s.byID[id]; ok {
		delete(s.byName, table.Name())
		delete(s.byID, id)
	}
}

func (s *TableService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		log.Printf("⚠️ %v", err)
	}
}
