package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/kkkppp/p2proto/internal/domain"
	"github.com/kkkppp/p2proto/internal/domain/models"
	"github.com/kkkppp/p2proto/internal/infrastructure/persistence"
	"github.com/kkkppp/p2proto/pkg/utils"
)

// emptyState is stored as old/new state when nothing else is known
var emptyState = datatypes.JSON("{}")

// ComponentRequest describes a component about to be created
type ComponentRequest struct {
	Type     domain.ComponentType
	ParentID uuid.NullUUID
	UserID   int64
	// NewState is the JSON description of the object after the change
	NewState []byte
}

// ComponentService drives components through their lifecycle. Every status
// change is checked against the state machine and paired with its history
// entry.
type ComponentService struct {
	tm   *persistence.TransactionManager
	repo *persistence.ComponentRepository
	sm   *domain.ComponentStateMachine
	now  func() time.Time
}

// NewComponentService creates a new ComponentService
func NewComponentService(tm *persistence.TransactionManager, repo *persistence.ComponentRepository) *ComponentService {
	return &ComponentService{
		tm:   tm,
		repo: repo,
		sm:   domain.NewComponentStateMachine(),
		now:  time.Now,
	}
}

// CreateLocked stores a new LOCKED component with an IN_PROGRESS history
// entry. Called without a transaction in ctx it commits on its own, so the
// lock survives a later rollback of the change itself.
func (s *ComponentService) CreateLocked(ctx context.Context, req ComponentRequest) (*models.Component, error) {
	status, historyStatus := s.sm.InitialState()
	now := s.now()

	component := &models.Component{
		ID:        utils.NewID(),
		Type:      req.Type,
		Status:    status,
		CreatedAt: now,
		CreatedBy: req.UserID,
		UpdatedAt: now,
		UpdatedBy: req.UserID,
	}
	newState := emptyState
	if len(req.NewState) > 0 {
		newState = datatypes.JSON(req.NewState)
	}

	err := s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, component); err != nil {
			return err
		}
		return s.repo.AppendHistory(ctx, &models.ComponentHistory{
			ComponentID: component.ID,
			ParentID:    req.ParentID,
			Status:      historyStatus,
			UserID:      req.UserID,
			Timestamp:   now,
			OldState:    emptyState,
			NewState:    newState,
		})
	})
	if err != nil {
		return nil, err
	}
	return component, nil
}

// CreateActive creates a component and completes it at once, for objects
// that come into being as part of a larger change
func (s *ComponentService) CreateActive(ctx context.Context, req ComponentRequest) (*models.Component, error) {
	var component *models.Component
	err := s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		component, err = s.CreateLocked(ctx, req)
		if err != nil {
			return err
		}
		return s.MarkSuccess(ctx, component.ID, req.UserID, nil)
	})
	if err != nil {
		return nil, err
	}
	component.Status = domain.ComponentActive
	return component, nil
}

// MarkSuccess activates a component and completes its latest history entry,
// recording the DDL that ran joined by newlines
func (s *ComponentService) MarkSuccess(ctx context.Context, id uuid.UUID, userID int64, ddl []string) error {
	return s.transition(ctx, id, userID, domain.TransitionActivate, strings.Join(ddl, "\n"))
}

// MarkFailure deactivates a component and fails its latest history entry
func (s *ComponentService) MarkFailure(ctx context.Context, id uuid.UUID, userID int64) error {
	return s.transition(ctx, id, userID, domain.TransitionDeactivate, "")
}

func (s *ComponentService) transition(ctx context.Context, id uuid.UUID, userID int64, action domain.ComponentTransition, ddl string) error {
	return s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		component, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		next, err := s.sm.Transition(component.Status, action)
		if err != nil {
			return err
		}
		latest, err := s.repo.LatestHistory(ctx, id)
		if err != nil {
			return err
		}
		nextHistory, err := s.sm.HistoryTransition(latest.Status, action)
		if err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, id, next, userID, s.now()); err != nil {
			return err
		}
		if err := s.repo.UpdateHistory(ctx, latest.ID, nextHistory, ddl); err != nil {
			return err
		}
		if component.Type == domain.ComponentTable {
			log.Printf("🔧 Component %s: %s -> %s", id, component.Status, next)
		}
		return nil
	})
}

// Get returns one component
func (s *ComponentService) Get(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	return s.repo.FindByID(ctx, id)
}

// History returns the history of a component, oldest first
func (s *ComponentService) History(ctx context.Context, id uuid.UUID) ([]models.ComponentHistory, error) {
	return s.repo.History(ctx, id)
}
