package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kkkppp/p2proto/internal/domain"
	"github.com/kkkppp/p2proto/internal/domain/models"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
)

// ComponentRepository stores components and their append-only history.
// Every method runs on the transaction carried by ctx, if any.
type ComponentRepository struct {
	tm *TransactionManager
}

// NewComponentRepository creates a new ComponentRepository
func NewComponentRepository(tm *TransactionManager) *ComponentRepository {
	return &ComponentRepository{tm: tm}
}

func (r *ComponentRepository) db(ctx context.Context) (*gorm.DB, error) {
	g, err := r.tm.Gorm(ctx)
	if err != nil {
		return nil, appErrors.NewDatabaseError("open catalog", err)
	}
	return g, nil
}

// Create inserts a component. A nil ID is replaced by a fresh one.
func (r *ComponentRepository) Create(ctx context.Context, c *models.Component) error {
	g, err := r.db(ctx)
	if err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if err := g.Create(c).Error; err != nil {
		return appErrors.NewDatabaseError("insert component", err)
	}
	return nil
}

// FindByID loads one component
func (r *ComponentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	g, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var c models.Component
	if err := g.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.NewNotFoundError("component", id.String())
		}
		return nil, appErrors.NewDatabaseError("select component", err)
	}
	return &c, nil
}

// UpdateStatus moves a component to status and stamps who changed it
func (r *ComponentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ComponentStatus, userID int64, at time.Time) error {
	g, err := r.db(ctx)
	if err != nil {
		return err
	}
	res := g.Model(&models.Component{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": at,
			"updated_by": userID,
		})
	if res.Error != nil {
		return appErrors.NewDatabaseError("update component", res.Error)
	}
	if res.RowsAffected == 0 {
		return appErrors.NewNotFoundError("component", id.String())
	}
	return nil
}

// AppendHistory inserts a history entry; its ID is assigned by the database
func (r *ComponentRepository) AppendHistory(ctx context.Context, h *models.ComponentHistory) error {
	g, err := r.db(ctx)
	if err != nil {
		return err
	}
	if err := g.Create(h).Error; err != nil {
		return appErrors.NewDatabaseError("insert component history", err)
	}
	return nil
}

// LatestHistory returns the most recent entry of a component, the one with
// the highest ID
func (r *ComponentRepository) LatestHistory(ctx context.Context, componentID uuid.UUID) (*models.ComponentHistory, error) {
	g, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var h models.ComponentHistory
	err = g.Where("component_id = ?", componentID).Order("id DESC").First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.NewNotFoundError("component history", componentID.String())
		}
		return nil, appErrors.NewDatabaseError("select component history", err)
	}
	return &h, nil
}

// UpdateHistory sets the status of a history entry and, when ddl is not
// empty, the statements that ran
func (r *ComponentRepository) UpdateHistory(ctx context.Context, id uint64, status domain.HistoryStatus, ddl string) error {
	g, err := r.db(ctx)
	if err != nil {
		return err
	}
	changes := map[string]interface{}{"status": status}
	if ddl != "" {
		changes["ddl_statement"] = ddl
	}
	res := g.Model(&models.ComponentHistory{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return appErrors.NewDatabaseError("update component history", res.Error)
	}
	return nil
}

// History lists every entry of a component, oldest first
func (r *ComponentRepository) History(ctx context.Context, componentID uuid.UUID) ([]models.ComponentHistory, error) {
	g, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	var entries []models.ComponentHistory
	if err := g.Where("component_id = ?", componentID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, appErrors.NewDatabaseError("select component history", err)
	}
	return entries, nil
}
