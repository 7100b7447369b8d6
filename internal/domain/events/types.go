package events

// EventType defines the type of event in the system
type EventType string

const (
	// Record Events
	RecordCreated EventType = "record.created"
	RecordUpdated EventType = "record.updated"
	RecordDeleted EventType = "record.deleted"

	// Schema Events
	TableCreated       EventType = "schema.table_created"
	TableCreateFailed  EventType = "schema.table_create_failed"
	TableLabelsUpdated EventType = "schema.table_labels_updated"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}
