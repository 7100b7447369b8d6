package formula

import (
	"fmt"
	"strconv"
)

// Node is a formula parse tree node
type Node interface {
	node()
}

// StringLit is a single-quoted literal; Value holds the unescaped text
type StringLit struct {
	Value string
}

// NumberLit is an unsigned integer literal
type NumberLit struct {
	Value int64
}

// Variable references a column of the owning table as $name
type Variable struct {
	Name string
}

// Call is a function invocation
type Call struct {
	Name string
	Args []Node
}

func (StringLit) node() {}
func (NumberLit) node() {}
func (Variable) node()  {}
func (Call) node()      {}

// Parse builds the parse tree of a formula. The grammar is
//
//	expr         := STRING | NUMBER | VARIABLE | functionCall
//	functionCall := IDENT '(' (expr (',' expr)*)? ')'
//
// Parse checks syntax only; names are resolved by the compiler.
func Parse(src string) (Node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %s at position %d", tok.describe(), tok.pos)
	}
	return root, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, fmt.Errorf("expected %s but found %s at position %d", kind, tok.describe(), tok.pos)
	}
	return tok, nil
}

func (p *parser) parseExpr() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		return StringLit{Value: tok.text}, nil
	case tokNumber:
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("number %s at position %d is out of range", tok.text, tok.pos)
		}
		return NumberLit{Value: n}, nil
	case tokVariable:
		return Variable{Name: tok.text}, nil
	case tokIdent:
		return p.parseCall(tok)
	}
	return nil, fmt.Errorf("expected an expression but found %s at position %d", tok.describe(), tok.pos)
}

func (p *parser) parseCall(name token) (Node, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}

	call := Call{Name: name.text}
	if p.peek().kind == tokRParen {
		p.next()
		return call, nil
	}

	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		tok := p.next()
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return call, nil
		}
		return nil, fmt.Errorf("expected ',' or ')' but found %s at position %d", tok.describe(), tok.pos)
	}
}
