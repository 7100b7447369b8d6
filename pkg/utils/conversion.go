package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToBool safely converts various types to boolean
// Handles bool, integers, floats, []byte and string ("1", "true", "yes", "on", "t")
func ToBool(val interface{}) bool {
	if val == nil {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case int32:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case []byte:
		// Raw DB bytes are common for TINYINT columns
		return parseBoolString(string(v))
	case string:
		return parseBoolString(v)
	default:
		return parseBoolString(fmt.Sprintf("%v", v))
	}
}

// parseBoolString parses boolean from string representation
func parseBoolString(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "1" || lower == "true" || lower == "yes" || lower == "on" || lower == "t" || lower == "y" {
		return true
	}
	if b, err := strconv.ParseBool(lower); err == nil {
		return b
	}
	return false
}

// ToInt64 converts numeric values and numeric strings to int64
func ToInt64(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to integer", val)
}

func uintToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%d overflows int64", v)
	}
	return int64(v), nil
}

// floatToInt64 accepts whole numbers inside the int64 range only
func floatToInt64(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%v is not a whole number", v)
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", v)
	}
	return int64(v), nil
}

// ToFloat64 converts numeric values and numeric strings to float64
func ToFloat64(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	i, err := ToInt64(val)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to float", val)
	}
	return float64(i), nil
}

// IsBlank reports whether a value is nil or a whitespace-only string
func IsBlank(val interface{}) bool {
	if val == nil {
		return true
	}
	if s, ok := val.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// ToString renders a scalar for messages and path parameters
func ToString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", val)
}
