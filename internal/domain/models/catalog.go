package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/kkkppp/p2proto/pkg/constants"
)

// TableRecord is the catalog row of a user-defined table. Its ID is the id
// of the table's component.
type TableRecord struct {
	ID          uuid.UUID     `gorm:"type:char(36);primaryKey"`
	Name        string        `gorm:"size:63;uniqueIndex;not null"`
	Label       string        `gorm:"size:255"`
	PluralLabel string        `gorm:"size:255"`
	TableType   string        `gorm:"size:16;not null"`
	PrimaryKey  string        `gorm:"size:63;not null"`
	Fields      []FieldRecord `gorm:"foreignKey:TableID"`
}

// FieldRecord is the catalog row of one column, ordered by Position
type FieldRecord struct {
	ID           uuid.UUID      `gorm:"type:char(36);primaryKey"`
	TableID      uuid.UUID      `gorm:"type:char(36);not null;index"`
	Position     int            `gorm:"not null"`
	Name         string         `gorm:"size:63;not null"`
	Label        string         `gorm:"size:255"`
	DomainCode   int            `gorm:"not null"`
	PrimaryKey   bool           `gorm:"not null"`
	Removable    bool           `gorm:"not null"`
	DefaultValue datatypes.JSON
	Properties   datatypes.JSON
}

// TableName overrides the table name for TableRecord
func (TableRecord) TableName() string {
	return constants.TableMetadata
}

// TableName overrides the table name for FieldRecord
func (FieldRecord) TableName() string {
	return constants.TableFieldMetadata
}

// All lists the catalog models in migration order
func All() []interface{} {
	return []interface{}{
		&Component{},
		&ComponentHistory{},
		&TableRecord{},
		&FieldRecord{},
	}
}
