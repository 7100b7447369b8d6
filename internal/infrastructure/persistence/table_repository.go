package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kkkppp/p2proto/internal/domain/models"
	"github.com/kkkppp/p2proto/internal/domain/schema"
	"github.com/kkkppp/p2proto/internal/infrastructure/database"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
)

// MigrateCatalog creates or updates the catalog tables: components, their
// history, and the table and field metadata
func MigrateCatalog(ctx context.Context, conn *database.Connection) error {
	g, err := conn.Gorm()
	if err != nil {
		return err
	}
	if err := g.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate catalog: %w", err)
	}
	log.Printf("🔧 Catalog tables are up to date")
	return nil
}

// TableRepository persists table metadata in the catalog
type TableRepository struct {
	tm *TransactionManager
}

// NewTableRepository creates a new TableRepository
func NewTableRepository(tm *TransactionManager) *TableRepository {
	return &TableRepository{tm: tm}
}

func (r *TableRepository) db(ctx context.Context) (*gorm.DB, error) {
	g, err := r.tm.Gorm(ctx)
	if err != nil {
		return nil, appErrors.NewDatabaseError("open catalog", err)
	}
	return g, nil
}

// CreateMetadata stores the table row and one field row per column. The
// table must carry the id of its component.
func (r *TableRepository) CreateMetadata(ctx context.Context, table *schema.TableMetadata) error {
	if table.ID() == uuid.Nil {
		return appErrors.NewValidationError("id", "table metadata needs a component id")
	}
	g, err := r.db(ctx)
	if err != nil {
		return err
	}
	rec, err := toTableRecord(table)
	if err != nil {
		return err
	}
	if err := g.Omit("Fields").Create(rec).Error; err != nil {
		return appErrors.NewDatabaseError("insert table metadata", err)
	}
	if len(rec.Fields) > 0 {
		if err := g.Create(&rec.Fields).Error; err != nil {
			return appErrors.NewDatabaseError("insert field metadata", err)
		}
	}
	return nil
}

// FindByID loads a table together with its columns
func (r *TableRepository) FindByID(ctx context.Context, id uuid.UUID) (*schema.TableMetadata, error) {
	return r.findOne(ctx, "id = ?", id, id.String())
}

// FindByName loads a table by its physical name
func (r *TableRepository) FindByName(ctx context.Context, name string) (*schema.TableMetadata, error) {
	return r.findOne(ctx, "name = ?", name, name)
}

func (r *TableRepository) findOne(ctx context.Context, cond string, arg interface{}, key string) (*schema.TableMetadata, error) {
	g, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var rec models.TableRecord
	err = g.Preload("Fields", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where(cond, arg).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.NewNotFoundError("table", key)
		}
		return nil, appErrors.NewDatabaseError("select table metadata", err)
	}
	return toTableMetadata(&rec)
}

// FindAll maps every table name to its id
func (r *TableRepository) FindAll(ctx context.Context) (map[string]uuid.UUID, error) {
	g, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var recs []models.TableRecord
	if err := g.Select("id", "name").Find(&recs).Error; err != nil {
		return nil, appErrors.NewDatabaseError("select table metadata", err)
	}
	out := make(map[string]uuid.UUID, len(recs))
	for _, rec := range recs {
		out[rec.Name] = rec.ID
	}
	return out, nil
}

// FindAllWithLabels lists every table without columns, ordered by plural
// label. A missing label falls back to the name and a missing plural label
// to the label with an "s" appended.
func (r *TableRepository) FindAllWithLabels(ctx context.Context) ([]schema.TableSummary, error) {
	g, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var recs []models.TableRecord
	if err := g.Find(&recs).Error; err != nil {
		return nil, appErrors.NewDatabaseError("select table metadata", err)
	}
	out := make([]schema.TableSummary, 0, len(recs))
	for _, rec := range recs {
		label, plural := labelsOf(&rec)
		out = append(out, schema.TableSummary{
			ID:          rec.ID,
			Name:        rec.Name,
			Label:       label,
			PluralLabel: plural,
			Type:        schema.TableType(rec.TableType),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PluralLabel < out[j].PluralLabel
	})
	return out, nil
}

// UpdateLabels changes the labels of a table; nothing else can be edited
func (r *TableRepository) UpdateLabels(ctx context.Context, id uuid.UUID, label, pluralLabel string) error {
	g, err := r.db(ctx)
	if err != nil {
		return err
	}
	res := g.Model(&models.TableRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"label":        label,
		"plural_label": pluralLabel,
	})
	if res.Error != nil {
		return appErrors.NewDatabaseError("update table metadata", res.Error)
	}
	if res.RowsAffected == 0 {
		return appErrors.NewNotFoundError("table", id.String())
	}
	return nil
}

func labelsOf(rec *models.TableRecord) (string, string) {
	label := rec.Label
	if label == "" {
		label = rec.Name
	}
	plural := rec.PluralLabel
	if plural == "" {
		plural = label + "s"
	}
	return label, plural
}

func toTableRecord(table *schema.TableMetadata) (*models.TableRecord, error) {
	rec := &models.TableRecord{
		ID:          table.ID(),
		Name:        table.Name(),
		Label:       table.Label(),
		PluralLabel: table.PluralLabel(),
		TableType:   string(table.Type()),
		PrimaryKey:  table.PrimaryKey().Name,
	}
	for i, col := range table.Columns() {
		field := models.FieldRecord{
			ID:         col.ID,
			TableID:    table.ID(),
			Position:   i,
			Name:       col.Name,
			Label:      col.Label,
			DomainCode: col.Domain.Code(),
			PrimaryKey: col.PrimaryKey,
			Removable:  col.Removable,
			Properties: datatypes.JSON("{}"),
		}
		if field.ID == uuid.Nil {
			field.ID = uuid.New()
		}
		if col.DefaultValue != nil {
			raw, err := json.Marshal(col.DefaultValue)
			if err != nil {
				return nil, fmt.Errorf("failed to encode default of %s: %w", col.Name, err)
			}
			field.DefaultValue = raw
		}
		if len(col.AdditionalProperties) > 0 {
			raw, err := json.Marshal(col.AdditionalProperties)
			if err != nil {
				return nil, fmt.Errorf("failed to encode properties of %s: %w", col.Name, err)
			}
			field.Properties = raw
		}
		rec.Fields = append(rec.Fields, field)
	}
	return rec, nil
}

func toTableMetadata(rec *models.TableRecord) (*schema.TableMetadata, error) {
	label, plural := labelsOf(rec)
	columns := make([]schema.ColumnMetadata, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		domain, err := fieldtypes.FromCode(f.DomainCode)
		if err != nil {
			return nil, err
		}
		col := schema.ColumnMetadata{
			ID:         f.ID,
			Name:       f.Name,
			Label:      f.Label,
			Domain:     domain,
			PrimaryKey: f.PrimaryKey,
			Removable:  f.Removable,
		}
		if col.Label == "" {
			col.Label = f.Name
		}
		if hasJSON(f.DefaultValue) {
			var def schema.DefaultHolder
			if err := json.Unmarshal(f.DefaultValue, &def); err != nil {
				return nil, fmt.Errorf("failed to decode default of %s.%s: %w", rec.Name, f.Name, err)
			}
			col.DefaultValue = &def
		}
		if hasJSON(f.Properties) {
			var props map[string]string
			if err := json.Unmarshal(f.Properties, &props); err != nil {
				return nil, fmt.Errorf("failed to decode properties of %s.%s: %w", rec.Name, f.Name, err)
			}
			if len(props) > 0 {
				col.AdditionalProperties = props
			}
		}
		columns = append(columns, col)
	}
	return schema.NewTable(schema.TableSpec{
		ID:          rec.ID,
		Name:        rec.Name,
		Label:       label,
		PluralLabel: plural,
		Type:        schema.TableType(rec.TableType),
		Columns:     columns,
		PrimaryKey:  rec.PrimaryKey,
	})
}

func hasJSON(raw datatypes.JSON) bool {
	s := string(raw)
	return s != "" && s != "null"
}
