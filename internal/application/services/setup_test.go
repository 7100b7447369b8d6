package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kkkppp/p2proto/internal/config"
	"github.com/kkkppp/p2proto/internal/domain/events"
	"github.com/kkkppp/p2proto/internal/domain/models"
	"github.com/kkkppp/p2proto/internal/infrastructure/database"
	"github.com/kkkppp/p2proto/internal/infrastructure/persistence"
)

const testUserID int64 = 42

// setupServices wires every service on a migrated in-memory SQLite catalog
func setupServices(t *testing.T) *ServiceManager {
	t.Helper()
	ctx := context.Background()
	conn, err := database.Open(ctx, &config.Config{DBDriver: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, persistence.MigrateCatalog(ctx, conn))
	return NewServiceManager(conn, Options{})
}

func countComponents(t *testing.T, sm *ServiceManager) int64 {
	t.Helper()
	g, err := sm.DB().Gorm()
	require.NoError(t, err)
	var n int64
	require.NoError(t, g.Model(&models.Component{}).Count(&n).Error)
	return n
}

// eventRecorder collects published events in order
type eventRecorder struct {
	mu     sync.Mutex
	events []events.EventType
	last   map[events.EventType]interface{}
}

func recordEvents(bus *EventBus, types ...events.EventType) *eventRecorder {
	rec := &eventRecorder{last: make(map[events.EventType]interface{})}
	for _, et := range types {
		et := et
		bus.Subscribe(et, func(ctx context.Context, payload interface{}) error {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.events = append(rec.events, et)
			rec.last[et] = payload
			return nil
		})
	}
	return rec
}

func (r *eventRecorder) seen() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.EventType(nil), r.events...)
}
