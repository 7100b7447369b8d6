package schema

import "github.com/google/uuid"

// TableSummary is a table without its columns, as listed in navigation
type TableSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	PluralLabel string    `json:"pluralLabel"`
	Type        TableType `json:"type"`
}
