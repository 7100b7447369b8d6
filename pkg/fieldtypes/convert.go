package fieldtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kkkppp/p2proto/pkg/auth"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/utils"
)

const dateLayout = "2006-01-02"

// Offset-free layouts tried after RFC 3339 fails; parsed in the local zone.
var localDateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Convert coerces a raw value (string or native) into the canonical native
// value stored for the domain. nil stays nil for every domain.
func (d Domain) Convert(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if v, ok := value.(driver.Valuer); ok {
		if _, isUUID := value.(uuid.UUID); !isUUID {
			raw, err := v.Value()
			if err != nil {
				return nil, appErrors.NewMalformedValueError(d.Name(), value, err)
			}
			if raw == nil {
				return nil, nil
			}
			value = raw
		}
	}

	switch d {
	case UUID:
		return convertUUID(value)
	case Text:
		return convertText(value), nil
	case Boolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return utils.ToBool(value), nil
	case Date:
		return convertDate(value)
	case DateTime:
		return convertDateTime(value)
	case Integer, AutoIncrement:
		i, err := utils.ToInt64(value)
		if err != nil {
			return nil, appErrors.NewMalformedValueError(d.Name(), value, err)
		}
		return i, nil
	case Float:
		f, err := utils.ToFloat64(value)
		if err != nil {
			return nil, appErrors.NewMalformedValueError(d.Name(), value, err)
		}
		return f, nil
	case Password:
		hash, err := auth.HashPassword(convertText(value))
		if err != nil {
			return nil, appErrors.NewMalformedValueError(d.Name(), "<redacted>", err)
		}
		return hash, nil
	case Formula:
		return value, nil
	}
	return nil, appErrors.NewUnknownDomainCodeError(int(d))
}

// ConvertForComparison coerces a value bound into a WHERE predicate. It
// matches Convert except for PASSWORD, where hashing would make equality
// impossible, so the value is bound unchanged.
func (d Domain) ConvertForComparison(value interface{}) (interface{}, error) {
	if d == Password {
		return value, nil
	}
	return d.Convert(value)
}

func convertUUID(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			id, err := uuid.FromBytes(v)
			if err != nil {
				return nil, appErrors.NewMalformedValueError(UUID.Name(), value, err)
			}
			return id, nil
		}
		value = string(v)
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", value))
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, appErrors.NewMalformedValueError(UUID.Name(), value, err)
	}
	return id, nil
}

func convertText(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", value)
}

func convertDate(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return convertDate(*v)
	}
	s := strings.TrimSpace(convertText(value))
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	// a full timestamp is accepted and truncated to its date
	if len(s) > len(dateLayout) {
		if t, err := time.Parse(dateLayout, s[:len(dateLayout)]); err == nil {
			return t, nil
		}
	}
	return nil, appErrors.NewMalformedValueError(Date.Name(), value, fmt.Errorf("expected YYYY-MM-DD"))
}

func convertDateTime(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	}
	s := strings.TrimSpace(convertText(value))
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localDateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return t, nil
	}
	return nil, appErrors.NewMalformedValueError(DateTime.Name(), value, fmt.Errorf("expected an ISO-8601 timestamp"))
}
