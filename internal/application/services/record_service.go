package services

import (
	"context"
	"log"

	"github.com/kkkppp/p2proto/internal/domain/events"
	"github.com/kkkppp/p2proto/internal/domain/ports"
	"github.com/kkkppp/p2proto/internal/domain/schema"
	"github.com/kkkppp/p2proto/internal/infrastructure/persistence"
	"github.com/kkkppp/p2proto/pkg/auth"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
	"github.com/kkkppp/p2proto/pkg/query"
	"github.com/kkkppp/p2proto/pkg/utils"
)

// RecordService serves the rows of user-defined tables addressed by table
// name. Password values never leave it: reads replace them with the mask.
type RecordService struct {
	catalog ports.TableCatalog
	records *persistence.RecordRepository
	events  ports.EventPublisher
}

// NewRecordService creates a new RecordService. publisher may be nil.
func NewRecordService(catalog ports.TableCatalog, records *persistence.RecordRepository, publisher ports.EventPublisher) *RecordService {
	return &RecordService{catalog: catalog, records: records, events: publisher}
}

// List returns the rows of a table matching criterion; nil matches all
func (s *RecordService) List(ctx context.Context, tableName string, criterion query.Criterion) ([]query.Record, error) {
	table, err := s.catalog.GetTableByName(ctx, tableName)
	if err != nil {
		return nil, err
	}
	rows, err := s.records.FindBy(ctx, table, criterion)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		maskPasswords(table, row)
	}
	return rows, nil
}

// Get returns one row by primary key
func (s *RecordService) Get(ctx context.Context, tableName string, id interface{}) (query.Record, error) {
	table, err := s.catalog.GetTableByName(ctx, tableName)
	if err != nil {
		return nil, err
	}
	row, err := s.records.FindByID(ctx, table, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, appErrors.NewNotFoundError(tableName, utils.ToString(id))
	}
	maskPasswords(table, row)
	return row, nil
}

// Create inserts a row and returns its primary key
func (s *RecordService) Create(ctx context.Context, tableName string, values map[string]interface{}, userID int64) (interface{}, error) {
	table, err := s.catalog.GetTableByName(ctx, tableName)
	if err != nil {
		return nil, err
	}
	id, err := s.records.Insert(ctx, table, values)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.RecordCreated, RecordEventPayload{Table: tableName, ID: id, UserID: userID})
	return id, nil
}

// Update changes a row. A row that does not exist is a NotFoundError; a
// request with nothing to write succeeds without touching the row.
func (s *RecordService) Update(ctx context.Context, tableName string, id interface{}, values map[string]interface{}, userID int64) error {
	table, err := s.catalog.GetTableByName(ctx, tableName)
	if err != nil {
		return err
	}
	affected, err := s.records.Update(ctx, table, id, values)
	if err != nil {
		return err
	}
	if affected == 0 {
		row, err := s.records.FindByID(ctx, table, id)
		if err != nil {
			return err
		}
		if row == nil {
			return appErrors.NewNotFoundError(tableName, utils.ToString(id))
		}
		return nil
	}
	s.publish(ctx, events.RecordUpdated, RecordEventPayload{Table: tableName, ID: id, UserID: userID})
	return nil
}

// Delete removes a row by primary key
func (s *RecordService) Delete(ctx context.Context, tableName string, id interface{}, userID int64) error {
	table, err := s.catalog.GetTableByName(ctx, tableName)
	if err != nil {
		return err
	}
	affected, err := s.records.Delete(ctx, table, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErrors.NewNotFoundError(tableName, utils.ToString(id))
	}
	s.publish(ctx, events.RecordDeleted, RecordEventPayload{Table: tableName, ID: id, UserID: userID})
	return nil
}

func (s *RecordService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		log.Printf("⚠️ %v", err)
	}
}

// maskPasswords hides stored hashes; a NULL password stays NULL
func maskPasswords(table *schema.TableMetadata, row query.Record) {
	for _, col := range table.Columns() {
		if col.Domain != fieldtypes.Password {
			continue
		}
		if v, ok := row[col.Name]; ok && v != nil {
			row[col.Name] = auth.PasswordMask
		}
	}
}
