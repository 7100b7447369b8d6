package schema

// ValueType says how a default's value is interpreted
type ValueType string

const (
	ValueConstant ValueType = "CONSTANT"
	ValueFormula  ValueType = "FORMULA"
)

// ExecutionContext says who resolves a default
type ExecutionContext string

const (
	// ServerSide defaults are embedded into the DDL
	ServerSide ExecutionContext = "SERVER_SIDE"
	// ClientSide defaults are resolved by the record engine at write time
	ClientSide ExecutionContext = "CLIENT_SIDE"
)

// TriggerEvent says when a default applies
type TriggerEvent string

const (
	OnCreate    TriggerEvent = "ON_CREATE"
	OnUpdate    TriggerEvent = "ON_UPDATE"
	OnAnyChange TriggerEvent = "ON_ANY_CHANGE"
	Always      TriggerEvent = "ALWAYS"
)

// CurrentTimestamp is the only supported FORMULA default expression
const CurrentTimestamp = "CURRENT_TIMESTAMP"

// DefaultHolder describes a column default
type DefaultHolder struct {
	ValueType        ValueType        `json:"valueType,omitempty"`
	Value            string           `json:"value,omitempty"`
	ExecutionContext ExecutionContext `json:"executionContext,omitempty"`
	TriggerEvent     TriggerEvent     `json:"triggerEvent,omitempty"`
}

// ClientDefault is a CLIENT_SIDE default of the given kind
func ClientDefault(valueType ValueType, trigger TriggerEvent, value string) *DefaultHolder {
	return &DefaultHolder{ValueType: valueType, Value: value, ExecutionContext: ClientSide, TriggerEvent: trigger}
}

// ServerDefault is a SERVER_SIDE default of the given kind
func ServerDefault(valueType ValueType, trigger TriggerEvent, value string) *DefaultHolder {
	return &DefaultHolder{ValueType: valueType, Value: value, ExecutionContext: ServerSide, TriggerEvent: trigger}
}

// IsClientSide reports whether the record engine resolves this default on trigger
func (d *DefaultHolder) IsClientSide(trigger TriggerEvent) bool {
	return d != nil && d.ExecutionContext == ClientSide && d.TriggerEvent == trigger
}

// IsServerSideOnCreate reports whether the default belongs in the column DDL
func (d *DefaultHolder) IsServerSideOnCreate() bool {
	return d != nil && d.ExecutionContext == ServerSide && d.TriggerEvent == OnCreate
}

func (d *DefaultHolder) clone() *DefaultHolder {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
