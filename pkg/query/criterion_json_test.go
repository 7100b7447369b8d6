package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCriterion(t *testing.T) {
	doc := `{
		"logic": "or",
		"items": [
			{"column": "name", "op": "ilike", "value": "%ann%"},
			{"logic": "AND", "items": [
				{"column": "age", "op": "BETWEEN", "value": [18, 30]},
				{"column": "owner", "op": "IS_NULL"}
			]},
			{"sql": "age > :min", "args": {"min": 3}}
		]
	}`

	c, err := ParseCriterion([]byte(doc))
	require.NoError(t, err)

	expected := AnyOf(
		ILike("name", "%ann%"),
		AllOf(
			Condition{Column: "age", Op: OpBetween, Value: []interface{}{float64(18), float64(30)}},
			IsNull("owner"),
		),
		RawSQL("age > :min", map[string]interface{}{"min": float64(3)}),
	)
	assert.Equal(t, expected, c)
}

func TestParseCriterion_Empty(t *testing.T) {
	for _, doc := range []string{"", "  ", "null"} {
		c, err := ParseCriterion([]byte(doc))
		require.NoError(t, err)
		assert.Nil(t, c)
	}
}

func TestParseCriterion_Invalid(t *testing.T) {
	tests := map[string]string{
		"not an object":  `[1, 2]`,
		"unknown op":     `{"column": "a", "op": "ALMOST"}`,
		"unknown logic":  `{"logic": "XOR", "items": []}`,
		"no known shape": `{"field": "a"}`,
		"bad nested":     `{"logic": "AND", "items": [{"column": "a", "op": "??"}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCriterion([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestCriterionJSON_PreservesShapes(t *testing.T) {
	c := AllOf(
		Eq("name", "Ann"),
		AnyOf(IsNull("age")),
		RawSQL("1 = :one", map[string]interface{}{"one": float64(1)}),
	)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"logic": "AND",
		"items": [
			{"column": "name", "op": "EQ", "value": "Ann"},
			{"logic": "OR", "items": [{"column": "age", "op": "IS_NULL"}]},
			{"sql": "1 = :one", "args": {"one": 1}}
		]
	}`, string(data))

	back, err := ParseCriterion(data)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
