package query

import (
	"fmt"
	"strings"
)

// Bind rewrites the :name parameters of sql into the dialect's positional
// placeholders and returns the matching argument list. Quoted strings and
// identifiers are copied untouched, and "::" is kept as a cast operator.
// Every parameter referenced must be present in params.
func Bind(dialect Dialect, sql string, params map[string]interface{}) (string, []interface{}, error) {
	var out strings.Builder
	out.Grow(len(sql))
	args := make([]interface{}, 0, len(params))

	var quote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if quote != 0 {
			out.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '\'', '"', '`':
			quote = ch
			out.WriteByte(ch)
			continue
		case ':':
			if i+1 < len(sql) && sql[i+1] == ':' {
				out.WriteString("::")
				i++
				continue
			}
			if i+1 < len(sql) && isParamStart(sql[i+1]) {
				j := i + 1
				for j < len(sql) && isParamPart(sql[j]) {
					j++
				}
				name := sql[i+1 : j]
				value, ok := params[name]
				if !ok {
					return "", nil, fmt.Errorf("missing value for parameter :%s", name)
				}
				args = append(args, value)
				out.WriteString(dialect.Placeholder(len(args)))
				i = j - 1
				continue
			}
		}
		out.WriteByte(ch)
	}

	return out.String(), args, nil
}

func isParamStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isParamPart(ch byte) bool {
	return isParamStart(ch) || (ch >= '0' && ch <= '9')
}
