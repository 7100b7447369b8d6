// Package fieldtypes is the closed catalog of column domains: the scalar
// types a table column may have, with their storage type, value coercion
// and predicate rules.
package fieldtypes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/kkkppp/p2proto/pkg/errors"
)

// Domain is a column's logical scalar type. The zero value is not a valid domain.
type Domain int

const (
	UUID          Domain = 1
	Text          Domain = 2
	Boolean       Domain = 3
	Date          Domain = 4
	DateTime      Domain = 5
	Integer       Domain = 6
	Float         Domain = 7
	AutoIncrement Domain = 8
	Password      Domain = 9
	Formula       Domain = 10
)

// FormulaPropertyKey is the additional-properties key holding a formula column's text
const FormulaPropertyKey = "formuladomain.formulakey"

type definition struct {
	name          string
	label         string
	sqlType       string
	autoIncrement bool
	virtual       bool
}

var definitions = map[Domain]definition{
	UUID:          {name: "UUID", label: "UUID", sqlType: "UUID"},
	Text:          {name: "TEXT", label: "Text", sqlType: "VARCHAR(255)"},
	Boolean:       {name: "BOOLEAN", label: "Checkbox", sqlType: "BOOLEAN"},
	Date:          {name: "DATE", label: "Date", sqlType: "DATE"},
	DateTime:      {name: "DATETIME", label: "Date/Time", sqlType: "TIMESTAMP"},
	Integer:       {name: "INTEGER", label: "Number", sqlType: "INTEGER"},
	Float:         {name: "FLOAT", label: "Decimal", sqlType: "FLOAT"},
	AutoIncrement: {name: "AUTOINCREMENT", label: "Auto Number", sqlType: "SERIAL", autoIncrement: true},
	Password:      {name: "PASSWORD", label: "Password", sqlType: "VARCHAR(255)"},
	Formula:       {name: "FORMULA", label: "Formula", virtual: true},
}

var byName = func() map[string]Domain {
	m := make(map[string]Domain, len(definitions))
	for d, def := range definitions {
		m[def.name] = d
	}
	return m
}()

// FromCode returns the domain with the given numeric code
func FromCode(code int) (Domain, error) {
	d := Domain(code)
	if _, ok := definitions[d]; !ok {
		return 0, appErrors.NewUnknownDomainCodeError(code)
	}
	return d, nil
}

// FromName returns the domain with the given internal name (case-insensitive)
func FromName(name string) (Domain, error) {
	d, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, appErrors.NewUnknownDomainNameError(name)
	}
	return d, nil
}

// All returns every domain in code order
func All() []Domain {
	return []Domain{UUID, Text, Boolean, Date, DateTime, Integer, Float, AutoIncrement, Password, Formula}
}

// Valid reports whether d is one of the known domains
func (d Domain) Valid() bool {
	_, ok := definitions[d]
	return ok
}

// Code returns the numeric code persisted in the fields catalog
func (d Domain) Code() int {
	return int(d)
}

// Name returns the internal name, e.g. "DATETIME"
func (d Domain) Name() string {
	return definitions[d].name
}

// Label returns the display label used by the admin UI
func (d Domain) Label() string {
	return definitions[d].label
}

// SQLType returns the canonical storage type. Virtual domains return "".
func (d Domain) SQLType() string {
	return definitions[d].sqlType
}

// AutoIncrement reports whether the database assigns values for this domain
func (d Domain) AutoIncrement() bool {
	return definitions[d].autoIncrement
}

// Virtual reports whether columns of this domain are computed and never stored
func (d Domain) Virtual() bool {
	return definitions[d].virtual
}

// NeedsCast reports whether equality predicates need an explicit cast on the bound value
func (d Domain) NeedsCast() bool {
	return d == UUID
}

// WherePredicate returns the equality fragment for a column with a positional placeholder
func (d Domain) WherePredicate(column string) string {
	if d.NeedsCast() {
		return column + " = ?::uuid"
	}
	return column + " = ?"
}

func (d Domain) String() string {
	if !d.Valid() {
		return "Domain(" + strconv.Itoa(int(d)) + ")"
	}
	return d.Name()
}

// MarshalJSON encodes the domain by internal name
func (d Domain) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, appErrors.NewUnknownDomainCodeError(int(d))
	}
	return json.Marshal(d.Name())
}

// UnmarshalJSON accepts either an internal name or a numeric code
func (d *Domain) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := FromName(name)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}

	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("domain must be a name or a code: %w", err)
	}
	parsed, err := FromCode(code)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
