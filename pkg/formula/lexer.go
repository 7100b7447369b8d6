package formula

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokVariable
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokComma
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokVariable:
		return "variable"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	text string // identifier or variable name, unescaped string body, digits
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tokIdent:
		return fmt.Sprintf("identifier '%s'", t.text)
	case tokVariable:
		return fmt.Sprintf("variable '$%s'", t.text)
	case tokString:
		return "string literal"
	case tokNumber:
		return fmt.Sprintf("number %s", t.text)
	}
	return t.kind.String()
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// tokenize splits formula text into tokens, ending with a tokEOF
func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++

		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
			i++
		case ch == ',':
			tokens = append(tokens, token{kind: tokComma, pos: i})
			i++

		case ch == '$':
			start := i
			i++
			if i >= len(src) || !isIdentStart(src[i]) {
				return nil, fmt.Errorf("expected variable name after '$' at position %d", start)
			}
			j := i
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokVariable, text: src[i:j], pos: start})
			i = j

		case ch == '\'':
			start := i
			var sb strings.Builder
			i++
			closed := false
			for i < len(src) {
				if src[i] == '\\' && i+1 < len(src) && src[i+1] == '\'' {
					sb.WriteByte('\'')
					i += 2
					continue
				}
				if src[i] == '\'' {
					closed = true
					i++
					break
				}
				sb.WriteByte(src[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal at position %d", start)
			}
			tokens = append(tokens, token{kind: tokString, text: sb.String(), pos: start})

		case isDigit(ch):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && isIdentStart(src[i]) {
				return nil, fmt.Errorf("malformed number at position %d", start)
			}
			tokens = append(tokens, token{kind: tokNumber, text: src[start:i], pos: start})

		case isIdentStart(ch):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[start:i], pos: start})

		default:
			r, _ := utf8.DecodeRuneInString(src[i:])
			return nil, fmt.Errorf("unexpected character '%c' at position %d", r, i)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(src)})
	return tokens, nil
}
