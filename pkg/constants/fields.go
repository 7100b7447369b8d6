package constants

// Names of the columns every table created from a name alone carries
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// StandardSystemFields returns the default column names in table order
func StandardSystemFields() []string {
	return []string{
		FieldID,
		FieldCreatedAt,
		FieldUpdatedAt,
	}
}

// IsSystemField checks if a field name is one of the default columns
func IsSystemField(fieldName string) bool {
	for _, sf := range StandardSystemFields() {
		if sf == fieldName {
			return true
		}
	}
	return false
}
