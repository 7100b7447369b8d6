package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkppp/p2proto/internal/domain"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
)

func TestComponentService_CreateLocked(t *testing.T) {
	sm := setupServices(t)
	ctx := context.Background()

	c, err := sm.Components.CreateLocked(ctx, ComponentRequest{Type: domain.ComponentTable, UserID: testUserID, NewState: []byte(`{"name":"t"}`)})
	require.NoError(t, err)
	assert.Equal(t, domain.ComponentLocked, c.Status)

	history, err := sm.Components.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryInProgress, history[0].Status)
	assert.Equal(t, testUserID, history[0].UserID)
	assert.JSONEq(t, `{}`, string(history[0].OldState))
	assert.JSONEq(t, `{"name":"t"}`, string(history[0].NewState))
	assert.False(t, history[0].ParentID.Valid)
}

func TestComponentService_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		apply       func(ctx context.Context, s *ComponentService, id uuid.UUID) error
		wantStatus  domain.ComponentStatus
		wantHistory domain.HistoryStatus
		wantDDL     string
	}{
		{
			name: "success records the ddl",
			apply: func(ctx context.Context, s *ComponentService, id uuid.UUID) error {
				return s.MarkSuccess(ctx, id, testUserID, []string{"CREATE TABLE a (id INTEGER)", "CREATE INDEX i ON a (id)"})
			},
			wantStatus:  domain.ComponentActive,
			wantHistory: domain.HistoryCompleted,
			wantDDL:     "CREATE TABLE a (id INTEGER)\nCREATE INDEX i ON a (id)",
		},
		{
			name: "failure",
			apply: func(ctx context.Context, s *ComponentService, id uuid.UUID) error {
				return s.MarkFailure(ctx, id, testUserID)
			},
			wantStatus:  domain.ComponentInactive,
			wantHistory: domain.HistoryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := setupServices(t)
			ctx := context.Background()

			c, err := sm.Components.CreateLocked(ctx, ComponentRequest{Type: domain.ComponentTable, UserID: testUserID})
			require.NoError(t, err)
			require.NoError(t, tt.apply(ctx, sm.Components, c.ID))

			loaded, err := sm.Components.Get(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, loaded.Status)

			history, err := sm.Components.History(ctx, c.ID)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, tt.wantHistory, history[0].Status)
			assert.Equal(t, tt.wantDDL, history[0].DDLStatement)
		})
	}
}

func TestComponentService_RejectsInvalidTransition(t *testing.T) {
	sm := setupServices(t)
	ctx := context.Background()

	c, err := sm.Components.CreateLocked(ctx, ComponentRequest{Type: domain.ComponentTable, UserID: testUserID})
	require.NoError(t, err)
	require.NoError(t, sm.Components.MarkSuccess(ctx, c.ID, testUserID, nil))

	err = sm.Components.MarkFailure(ctx, c.ID, testUserID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid state transition")

	loaded, err := sm.Components.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ComponentActive, loaded.Status, "a rejected transition changes nothing")

	err = sm.Components.MarkSuccess(ctx, uuid.New(), testUserID, nil)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestComponentService_CreateActive(t *testing.T) {
	sm := setupServices(t)
	ctx := context.Background()

	parent, err := sm.Components.CreateLocked(ctx, ComponentRequest{Type: domain.ComponentTable, UserID: testUserID})
	require.NoError(t, err)

	field, err := sm.Components.CreateActive(ctx, ComponentRequest{
		Type:     domain.ComponentField,
		ParentID: uuid.NullUUID{UUID: parent.ID, Valid: true},
		UserID:   testUserID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ComponentActive, field.Status)

	history, err := sm.Components.History(ctx, field.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryCompleted, history[0].Status)
	assert.Equal(t, parent.ID, history[0].ParentID.UUID)
}
