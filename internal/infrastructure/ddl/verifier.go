package ddl

import (
	"fmt"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // Using test_driver for ValueExpr
)

// Verifier parses generated MySQL/TiDB DDL before it reaches the server.
// The parser is not safe for concurrent use, so calls are serialized.
type Verifier struct {
	mu     sync.Mutex
	parser *parser.Parser
}

// NewVerifier creates a new Verifier
func NewVerifier() *Verifier {
	return &Verifier{parser: parser.New()}
}

// VerifyCreateTable checks that sql is exactly one CREATE TABLE for table
// declaring the expected number of columns
func (v *Verifier) VerifyCreateTable(sql, table string, columns int) error {
	v.mu.Lock()
	stmtNodes, _, err := v.parser.Parse(sql, "", "")
	v.mu.Unlock()
	if err != nil {
		return fmt.Errorf("DDL parse error: %v", err)
	}
	if len(stmtNodes) != 1 {
		return fmt.Errorf("expected a single DDL statement, got %d", len(stmtNodes))
	}

	create, ok := stmtNodes[0].(*ast.CreateTableStmt)
	if !ok {
		return fmt.Errorf("expected CREATE TABLE, got %T", stmtNodes[0])
	}
	if create.Table.Name.O != table {
		return fmt.Errorf("DDL creates table '%s', expected '%s'", create.Table.Name.O, table)
	}
	if len(create.Cols) != columns {
		return fmt.Errorf("DDL declares %d columns, expected %d", len(create.Cols), columns)
	}
	return nil
}
