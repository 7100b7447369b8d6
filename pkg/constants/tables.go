package constants

// Catalog table names. User tables may not take these names.
const (
	TableComponents       = "components"
	TableComponentHistory = "component_history"
	TableMetadata         = "table_metadata"
	TableFieldMetadata    = "field_metadata"
)

// CatalogTables lists the tables the engine keeps its own state in
func CatalogTables() []string {
	return []string{
		TableComponents,
		TableComponentHistory,
		TableMetadata,
		TableFieldMetadata,
	}
}

// IsSystemTable reports whether tableName belongs to the catalog
func IsSystemTable(tableName string) bool {
	for _, name := range CatalogTables() {
		if name == tableName {
			return true
		}
	}
	return false
}
