package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/kkkppp/p2proto/internal/domain/schema"
)

// TableCatalog resolves table metadata. Record and formula services depend
// on it rather than on the repository so they can run against a cache.
type TableCatalog interface {
	// GetTable returns a table with its columns by id.
	GetTable(ctx context.Context, id uuid.UUID) (*schema.TableMetadata, error)

	// GetTableByName returns a table with its columns by physical name.
	GetTableByName(ctx context.Context, name string) (*schema.TableMetadata, error)
}
