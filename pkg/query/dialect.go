package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kkkppp/p2proto/pkg/fieldtypes"
)

// Dialect identifies the SQL flavour statements are rendered for
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

var bareIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Words that cannot appear unquoted as a column or table name in at least one dialect
var reservedWords = map[string]bool{
	"all": true, "and": true, "as": true, "asc": true, "between": true, "by": true,
	"case": true, "check": true, "column": true, "constraint": true, "create": true,
	"default": true, "delete": true, "desc": true, "distinct": true, "drop": true,
	"else": true, "end": true, "exists": true, "from": true, "group": true,
	"having": true, "in": true, "index": true, "insert": true, "into": true,
	"is": true, "join": true, "key": true, "like": true, "limit": true, "not": true,
	"null": true, "on": true, "or": true, "order": true, "primary": true,
	"references": true, "select": true, "set": true, "table": true, "then": true,
	"to": true, "union": true, "unique": true, "update": true, "user": true,
	"using": true, "values": true, "when": true, "where": true, "with": true,
}

// ParseDialect maps a driver name to a Dialect
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql", "tidb", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported SQL dialect: %q", name)
}

// IsBareIdentifier reports whether name can be emitted without quoting
func IsBareIdentifier(name string) bool {
	return bareIdentifier.MatchString(name) && !reservedWords[name]
}

// QuoteIdent returns name unchanged when it is a plain lower-case identifier,
// otherwise quoted for the dialect with embedded quote characters doubled.
func (d Dialect) QuoteIdent(name string) string {
	if IsBareIdentifier(name) {
		return name
	}
	if d == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder returns the positional placeholder for the n-th (1-based) argument
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// CastSuffix returns the explicit cast appended after a placeholder bound to
// a column of the given domain, or "" when the dialect needs none.
func (d Dialect) CastSuffix(domain fieldtypes.Domain) string {
	if d == Postgres && domain.NeedsCast() {
		return "::uuid"
	}
	return ""
}

// CaseInsensitiveLike renders a case-insensitive LIKE comparison
func (d Dialect) CaseInsensitiveLike(column, placeholder string) string {
	switch d {
	case MySQL:
		return "LOWER(" + column + ") LIKE LOWER(" + placeholder + ")"
	case SQLite:
		// LIKE is already case-insensitive for ASCII in SQLite
		return column + " LIKE " + placeholder
	}
	return column + " ILIKE " + placeholder
}

// UsesConcatFunction reports whether string concatenation should be emitted
// as concat(a, b) rather than the a || b operator.
func (d Dialect) UsesConcatFunction() bool {
	return d == MySQL
}

// ColumnType maps a domain to the dialect's storage type. Virtual domains map to "".
func (d Dialect) ColumnType(domain fieldtypes.Domain) string {
	switch domain {
	case fieldtypes.UUID:
		switch d {
		case MySQL:
			return "CHAR(36)"
		case SQLite:
			return "TEXT"
		}
	case fieldtypes.DateTime:
		if d == MySQL {
			return "DATETIME"
		}
	case fieldtypes.AutoIncrement:
		switch d {
		case MySQL:
			return "BIGINT"
		case SQLite:
			return "INTEGER"
		}
	}
	return domain.SQLType()
}
