package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/kkkppp/p2proto/pkg/errors"
)

func TestEngine_Preview(t *testing.T) {
	engine := NewEngine()
	columns := []string{"first_name", "last_name", "code"}

	tests := []struct {
		name     string
		formula  string
		record   map[string]interface{}
		expected interface{}
	}{
		{
			name:     "full name",
			formula:  "concat($first_name, ' ', $last_name)",
			record:   map[string]interface{}{"first_name": "Ann", "last_name": "Lee"},
			expected: "Ann Lee",
		},
		{
			name:     "null treated as empty in concat",
			formula:  "concat($first_name, '|', $last_name)",
			record:   map[string]interface{}{"first_name": "Ann"},
			expected: "Ann|",
		},
		{
			name:     "substring and upper",
			formula:  "upper(substring($code, 2, 2))",
			record:   map[string]interface{}{"code": "abcd"},
			expected: "BC",
		},
		{
			name:     "escaped quote",
			formula:  `concat($first_name, '\'s')`,
			record:   map[string]interface{}{"first_name": "Ann"},
			expected: "Ann's",
		},
		{
			name:     "blank formula",
			formula:  "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Preview(tt.formula, columns, tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEngine_PreviewRejectsInvalidFormula(t *testing.T) {
	_, err := NewEngine().Preview("concat($nope)", []string{"a"}, nil)
	assert.True(t, appErrors.IsFormulaValidation(err))
}

func TestToExpression(t *testing.T) {
	root, err := Parse(`concat(upper($a), 'x"y', substring($b, 1, 2))`)
	require.NoError(t, err)
	assert.Equal(t, `CONCAT(UPPER(record["a"]), "x\"y", SUBSTRING(record["b"], 1, 2))`, ToExpression(root))
}
