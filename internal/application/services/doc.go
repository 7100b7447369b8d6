// Package services provides the business logic layer of the table engine.
//
// This package contains the service implementations that handle:
//   - Component lifecycle with state machine checked transitions (ComponentService)
//   - Table creation around DDL, and cached table metadata (TableService)
//   - CRUD over user-defined tables addressed by name (RecordService)
//   - Formula validation and preview (FormulaService)
//   - Event publishing and subscription (EventBus)
//
// ServiceManager wires them on one database connection.
package services
