package ports

// FormulaEvaluator checks formulas against a table's columns and evaluates
// them on a sample record without touching the database.
type FormulaEvaluator interface {
	// Validate returns the columns the formula references, in order of first appearance.
	Validate(formula string, columns []string) ([]string, error)

	// Preview evaluates the formula against one record.
	Preview(formula string, columns []string, record map[string]interface{}) (interface{}, error)
}
