package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/kkkppp/p2proto/internal/domain"
	"github.com/kkkppp/p2proto/pkg/constants"
)

// Component is the lifecycle row shared by tables, fields, pages and elements.
// Components are never deleted; a failed creation leaves an INACTIVE row.
type Component struct {
	ID        uuid.UUID              `gorm:"type:char(36);primaryKey" json:"id"`
	Type      domain.ComponentType   `gorm:"size:16;not null" json:"type"`
	Status    domain.ComponentStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt time.Time              `json:"createdAt"`
	CreatedBy int64                  `json:"createdBy"`
	UpdatedAt time.Time              `json:"updatedAt"`
	UpdatedBy int64                  `json:"updatedBy"`
}

// ComponentHistory is one append-only history entry of a component. The
// DDL that ran for the change, if any, is kept with it.
type ComponentHistory struct {
	ID           uint64               `gorm:"primaryKey;autoIncrement" json:"id"`
	ComponentID  uuid.UUID            `gorm:"type:char(36);not null;index" json:"componentId"`
	ParentID     uuid.NullUUID        `gorm:"type:char(36);index" json:"parentId"`
	Status       domain.HistoryStatus `gorm:"size:16;not null" json:"status"`
	UserID       int64                `json:"userId"`
	Timestamp    time.Time            `gorm:"not null" json:"timestamp"`
	DDLStatement string               `gorm:"type:text" json:"ddlStatement,omitempty"`
	OldState     datatypes.JSON       `json:"oldState,omitempty"`
	NewState     datatypes.JSON       `json:"newState,omitempty"`
}

// TableName overrides the table name for Component
func (Component) TableName() string {
	return constants.TableComponents
}

// TableName overrides the table name for ComponentHistory
func (ComponentHistory) TableName() string {
	return constants.TableComponentHistory
}
