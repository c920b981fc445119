package posting

// A small, auditable boolean expression language for a rule's
// auto_post_if policy. The grammar supports:
//
//	expr       := and ( "||" and )*
//	and        := term ( "&&" term )*
//	term       := "(" expr ")" | comparison | "true" | "false"
//	comparison := operand ( ">=" | ">" | "<=" | "<" | "==" | "!=" ) operand
//	operand    := number | 'string' | "string" | field
//	field      := ident ( "." ident )*
//
// Fields resolve through UniversalFinanceEvent.Field (ai_confidence,
// total_amount, line_count, currency, source_system, metadata.<key>).
// Numeric comparison applies when both operands are numbers; == and !=
// additionally compare strings and booleans. No general evaluation, no
// side effects.

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// FieldResolver resolves a field reference during expression evaluation
type FieldResolver func(name string) (any, bool)

// Expr is a parsed auto_post_if expression
type Expr struct {
	root exprNode
	src  string
}

// ParseExpr parses an expression into its evaluable form
func ParseExpr(src string) (*Expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("unexpected token %q in expression %q", p.peek().text, src)
	}
	return &Expr{root: node, src: src}, nil
}

// Eval evaluates the expression against the given field resolver
func (e *Expr) Eval(resolve FieldResolver) (bool, error) {
	v, err := e.root.eval(resolve)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q does not evaluate to a boolean", e.src)
	}
	return b, nil
}

// String returns the original expression source
func (e *Expr) String() string {
	return e.src
}

type exprNode interface {
	eval(resolve FieldResolver) (any, error)
}

type binaryNode struct {
	op          string
	left, right exprNode
}

func (n *binaryNode) eval(resolve FieldResolver) (any, error) {
	lv, err := n.left.eval(resolve)
	if err != nil {
		return nil, err
	}
	if n.op == "&&" || n.op == "||" {
		lb, ok := lv.(bool)
		if !ok {
			return nil, fmt.Errorf("operand of %q is not a boolean", n.op)
		}
		// short-circuit
		if n.op == "&&" && !lb {
			return false, nil
		}
		if n.op == "||" && lb {
			return true, nil
		}
		rv, err := n.right.eval(resolve)
		if err != nil {
			return nil, err
		}
		rb, ok := rv.(bool)
		if !ok {
			return nil, fmt.Errorf("operand of %q is not a boolean", n.op)
		}
		return rb, nil
	}

	rv, err := n.right.eval(resolve)
	if err != nil {
		return nil, err
	}
	return compare(n.op, lv, rv)
}

func compare(op string, lv, rv any) (bool, error) {
	lf, lok := toFloat(lv)
	rf, rok := toFloat(rv)
	if lok && rok {
		switch op {
		case ">=":
			return lf >= rf, nil
		case ">":
			return lf > rf, nil
		case "<=":
			return lf <= rf, nil
		case "<":
			return lf < rf, nil
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
		}
	}
	if op == "==" || op == "!=" {
		equal := lv == rv
		if op == "==" {
			return equal, nil
		}
		return !equal, nil
	}
	return false, fmt.Errorf("operator %q requires numeric operands (got %T and %T)", op, lv, rv)
}

type literalNode struct {
	value any
}

func (n *literalNode) eval(FieldResolver) (any, error) {
	return n.value, nil
}

type fieldNode struct {
	name string
}

func (n *fieldNode) eval(resolve FieldResolver) (any, error) {
	v, ok := resolve(n.name)
	if !ok {
		return nil, fmt.Errorf("unknown field %q", n.name)
	}
	return v, nil
}

type token struct {
	kind string // ident, number, string, op
	text string
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			tokens = append(tokens, token{kind: "op", text: string(r)})
			i++
		case r == '&' || r == '|':
			if i+1 >= len(runes) || runes[i+1] != r {
				return nil, fmt.Errorf("invalid operator %q at offset %d", string(r), i)
			}
			tokens = append(tokens, token{kind: "op", text: string(r) + string(r)})
			i += 2
		case r == '>' || r == '<' || r == '=' || r == '!':
			op := string(r)
			if i+1 < len(runes) && runes[i+1] == '=' {
				op += "="
				i++
			}
			if op == "=" || op == "!" {
				return nil, fmt.Errorf("invalid operator %q at offset %d", op, i)
			}
			tokens = append(tokens, token{kind: "op", text: op})
			i++
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string at offset %d", i)
			}
			tokens = append(tokens, token{kind: "string", text: string(runes[i+1 : j])})
			i = j + 1
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: "number", text: string(runes[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_' || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: "ident", text: string(runes[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", string(r), i)
		}
	}
	return tokens, nil
}

type exprParser struct {
	tokens []token
	pos    int
}

func (p *exprParser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *exprParser) peek() token {
	if p.atEnd() {
		return token{}
	}
	return p.tokens[p.pos]
}

func (p *exprParser) accept(kind, text string) bool {
	if p.atEnd() {
		return false
	}
	t := p.tokens[p.pos]
	if t.kind == kind && t.text == text {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("op", "||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (exprNode, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.accept("op", "&&") {
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "&&", left: left, right: right}
	}
	return left, nil
}

var comparisonOps = []string{">=", ">", "<=", "<", "==", "!="}

func (p *exprParser) parseTerm() (exprNode, error) {
	if p.accept("op", "(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept("op", ")") {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	for _, op := range comparisonOps {
		if p.accept("op", op) {
			right, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			return &binaryNode{op: op, left: left, right: right}, nil
		}
	}

	// bare boolean literal or boolean field
	if lit, ok := left.(*literalNode); ok {
		if _, isBool := lit.value.(bool); isBool {
			return left, nil
		}
	}
	if _, ok := left.(*fieldNode); ok {
		return left, nil
	}
	return nil, fmt.Errorf("expected comparison operator after operand")
}

func (p *exprParser) parseOperand() (exprNode, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	t := p.tokens[p.pos]
	switch t.kind {
	case "number":
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.text)
		}
		p.pos++
		return &literalNode{value: f}, nil
	case "string":
		p.pos++
		return &literalNode{value: t.text}, nil
	case "ident":
		p.pos++
		switch strings.ToLower(t.text) {
		case "true":
			return &literalNode{value: true}, nil
		case "false":
			return &literalNode{value: false}, nil
		}
		return &fieldNode{name: t.text}, nil
	}
	return nil, fmt.Errorf("unexpected token %q", t.text)
}
