// FilePath: internal/formula/formula.go

// Package formula evaluates user-authored value transformations without
// granting them any host access. The grammar is deliberately tiny: numeric and
// string literals, the $VALUE$ placeholder, arithmetic, comparison and boolean
// operators, the ternary operator, and a fixed whitelist of math functions.
// There are no variables, no loops, no property access and no way to reach the
// host environment; anything outside the grammar is rejected, not executed.
package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Placeholder is the reserved token substituted by the sensor value
const Placeholder = "$VALUE$"

// Result is the outcome of a formula evaluation. Ternary expressions may
// legitimately yield text (boolean-to-label mapping), so callers must
// stringify defensively instead of assuming a number.
type Result struct {
	Num    float64 `json:"num"`
	Text   string  `json:"text,omitempty"`
	IsText bool    `json:"is_text"`
}

// String renders the result for display
func (r Result) String() string {
	if r.IsText {
		return r.Text
	}
	return strconv.FormatFloat(r.Num, 'f', -1, 64)
}

// Apply evaluates the formula against the value, failing closed: on any lex,
// parse or eval error the original value is returned untouched along with the
// diagnostic. An empty formula is the identity transformation. Apply never
// panics; a formula error must not abort widget rendering.
func Apply(raw string, value float64) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{Num: value}, nil
	}
	res, err := Evaluate(raw, value)
	if err != nil {
		return Result{Num: value}, err
	}
	return res, nil
}

// Evaluate parses and interprets the formula with $VALUE$ bound to value
func Evaluate(raw string, value float64) (Result, error) {
	tokens, err := lex(raw)
	if err != nil {
		return Result{}, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return Result{}, err
	}
	if !p.atEnd() {
		return Result{}, fmt.Errorf("unexpected token %q", p.peek().text)
	}
	v, err := node.eval(value)
	if err != nil {
		return Result{}, err
	}
	switch v.kind {
	case kindText:
		return Result{Text: v.text, IsText: true}, nil
	case kindBool:
		// comparisons surfacing as the final result render as 1/0
		if v.boolean {
			return Result{Num: 1}, nil
		}
		return Result{Num: 0}, nil
	default:
		return Result{Num: v.num}, nil
	}
}

// ----- lexer -----

type tokenKind int

const (
	tkNumber tokenKind = iota
	tkString
	tkValue
	tkIdent
	tkOp
	tkLParen
	tkRParen
	tkComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tkLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tkRParen, text: ")"})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tkComma, text: ","})
			i++
		case c == '$':
			if !strings.HasPrefix(input[i:], Placeholder) {
				return nil, fmt.Errorf("unexpected character %q", c)
			}
			tokens = append(tokens, token{kind: tkValue, text: Placeholder})
			i += len(Placeholder)
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(input) && (input[j] >= '0' && input[j] <= '9' || input[j] == '.') {
				j++
			}
			n, err := strconv.ParseFloat(input[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("malformed number %q", input[i:j])
			}
			tokens = append(tokens, token{kind: tkNumber, text: input[i:j], num: n})
			i = j
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(input) && input[j] != quote {
				j++
			}
			if j >= len(input) {
				return nil, fmt.Errorf("unterminated string")
			}
			tokens = append(tokens, token{kind: tkString, text: input[i+1 : j]})
			i = j + 1
		case isIdentStart(c):
			j := i
			for j < len(input) && isIdentPart(input[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tkIdent, text: input[i:j]})
			i = j
		default:
			op, n := lexOperator(input[i:])
			if n == 0 {
				return nil, fmt.Errorf("unexpected character %q", c)
			}
			tokens = append(tokens, token{kind: tkOp, text: op})
			i += n
		}
	}
	return tokens, nil
}

func lexOperator(s string) (string, int) {
	for _, op := range []string{"<=", ">=", "==", "!=", "&&", "||"} {
		if strings.HasPrefix(s, op) {
			return op, 2
		}
	}
	switch s[0] {
	case '+', '-', '*', '/', '%', '<', '>', '!', '?', ':':
		return s[:1], 1
	}
	return "", 0
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// ----- parser -----

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() token {
	if p.atEnd() {
		return token{}
	}
	return p.tokens[p.pos]
}

func (p *parser) matchOp(ops ...string) (string, bool) {
	if p.atEnd() || p.tokens[p.pos].kind != tkOp {
		return "", false
	}
	for _, op := range ops {
		if p.tokens[p.pos].text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.atEnd() || p.tokens[p.pos].kind != kind {
		return fmt.Errorf("expected %s", what)
	}
	p.pos++
	return nil
}

// parseExpr parses a ternary; the ternary is right-associative
func (p *parser) parseExpr() (node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, ok := p.matchOp("?"); !ok {
		return cond, nil
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, ok := p.matchOp(":"); !ok {
		return nil, fmt.Errorf("expected ':' in ternary expression")
	}
	otherwise, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ternaryNode{cond: cond, then: then, otherwise: otherwise}, nil
}

func (p *parser) parseOr() (node, error) {
	return p.parseBinary([]string{"||"}, p.parseAnd)
}

func (p *parser) parseAnd() (node, error) {
	return p.parseBinary([]string{"&&"}, p.parseEquality)
}

func (p *parser) parseEquality() (node, error) {
	return p.parseBinary([]string{"==", "!="}, p.parseRelational)
}

func (p *parser) parseRelational() (node, error) {
	return p.parseBinary([]string{"<=", ">=", "<", ">"}, p.parseAdditive)
}

func (p *parser) parseAdditive() (node, error) {
	return p.parseBinary([]string{"+", "-"}, p.parseMultiplicative)
}

func (p *parser) parseMultiplicative() (node, error) {
	return p.parseBinary([]string{"*", "/", "%"}, p.parseUnary)
}

func (p *parser) parseBinary(ops []string, next func() (node, error)) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.matchOp("-", "!"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	t := p.tokens[p.pos]
	switch t.kind {
	case tkNumber:
		p.pos++
		return &literalNode{val: value{kind: kindNumber, num: t.num}}, nil
	case tkString:
		p.pos++
		return &literalNode{val: value{kind: kindText, text: t.text}}, nil
	case tkValue:
		p.pos++
		return &valueNode{}, nil
	case tkLParen:
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tkRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tkIdent:
		switch t.text {
		case "true":
			p.pos++
			return &literalNode{val: value{kind: kindBool, boolean: true}}, nil
		case "false":
			p.pos++
			return &literalNode{val: value{kind: kindBool, boolean: false}}, nil
		}
		if _, ok := functions[t.text]; !ok {
			return nil, fmt.Errorf("unsupported identifier %q", t.text)
		}
		p.pos++
		if err := p.expect(tkLParen, "'(' after function name"); err != nil {
			return nil, err
		}
		var args []node
		if !p.atEnd() && p.peek().kind != tkRParen {
			for {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.atEnd() || p.peek().kind != tkComma {
					break
				}
				p.pos++
			}
		}
		if err := p.expect(tkRParen, "')'"); err != nil {
			return nil, err
		}
		return &callNode{name: t.text, args: args}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

// ----- interpreter -----

type valueKind int

const (
	kindNumber valueKind = iota
	kindText
	kindBool
)

type value struct {
	kind    valueKind
	num     float64
	text    string
	boolean bool
}

func (v value) truthy() bool {
	switch v.kind {
	case kindBool:
		return v.boolean
	case kindText:
		return v.text != ""
	default:
		return v.num != 0
	}
}

type node interface {
	eval(input float64) (value, error)
}

type literalNode struct{ val value }

func (n *literalNode) eval(float64) (value, error) { return n.val, nil }

type valueNode struct{}

func (n *valueNode) eval(input float64) (value, error) {
	return value{kind: kindNumber, num: input}, nil
}

type unaryNode struct {
	op      string
	operand node
}

func (n *unaryNode) eval(input float64) (value, error) {
	v, err := n.operand.eval(input)
	if err != nil {
		return value{}, err
	}
	switch n.op {
	case "-":
		if v.kind != kindNumber {
			return value{}, fmt.Errorf("operator '-' requires a number")
		}
		return value{kind: kindNumber, num: -v.num}, nil
	default: // "!"
		return value{kind: kindBool, boolean: !v.truthy()}, nil
	}
}

type binaryNode struct {
	op          string
	left, right node
}

func (n *binaryNode) eval(input float64) (value, error) {
	// boolean operators short-circuit
	if n.op == "&&" || n.op == "||" {
		l, err := n.left.eval(input)
		if err != nil {
			return value{}, err
		}
		if n.op == "&&" && !l.truthy() {
			return value{kind: kindBool, boolean: false}, nil
		}
		if n.op == "||" && l.truthy() {
			return value{kind: kindBool, boolean: true}, nil
		}
		r, err := n.right.eval(input)
		if err != nil {
			return value{}, err
		}
		return value{kind: kindBool, boolean: r.truthy()}, nil
	}

	l, err := n.left.eval(input)
	if err != nil {
		return value{}, err
	}
	r, err := n.right.eval(input)
	if err != nil {
		return value{}, err
	}

	if n.op == "==" || n.op == "!=" {
		eq := valuesEqual(l, r)
		if n.op == "!=" {
			eq = !eq
		}
		return value{kind: kindBool, boolean: eq}, nil
	}

	if l.kind != kindNumber || r.kind != kindNumber {
		return value{}, fmt.Errorf("operator %q requires numbers", n.op)
	}
	switch n.op {
	case "+":
		return value{kind: kindNumber, num: l.num + r.num}, nil
	case "-":
		return value{kind: kindNumber, num: l.num - r.num}, nil
	case "*":
		return value{kind: kindNumber, num: l.num * r.num}, nil
	case "/":
		if r.num == 0 {
			return value{}, fmt.Errorf("division by zero")
		}
		return value{kind: kindNumber, num: l.num / r.num}, nil
	case "%":
		if r.num == 0 {
			return value{}, fmt.Errorf("division by zero")
		}
		return value{kind: kindNumber, num: math.Mod(l.num, r.num)}, nil
	case "<":
		return value{kind: kindBool, boolean: l.num < r.num}, nil
	case "<=":
		return value{kind: kindBool, boolean: l.num <= r.num}, nil
	case ">":
		return value{kind: kindBool, boolean: l.num > r.num}, nil
	case ">=":
		return value{kind: kindBool, boolean: l.num >= r.num}, nil
	}
	return value{}, fmt.Errorf("unsupported operator %q", n.op)
}

func valuesEqual(l, r value) bool {
	if l.kind == kindText && r.kind == kindText {
		return l.text == r.text
	}
	if l.kind == kindText || r.kind == kindText {
		return false
	}
	return l.asNumber() == r.asNumber()
}

func (v value) asNumber() float64 {
	if v.kind == kindBool {
		if v.boolean {
			return 1
		}
		return 0
	}
	return v.num
}

type ternaryNode struct {
	cond, then, otherwise node
}

func (n *ternaryNode) eval(input float64) (value, error) {
	c, err := n.cond.eval(input)
	if err != nil {
		return value{}, err
	}
	if c.truthy() {
		return n.then.eval(input)
	}
	return n.otherwise.eval(input)
}

type callNode struct {
	name string
	args []node
}

func (n *callNode) eval(input float64) (value, error) {
	fn := functions[n.name]
	args := make([]value, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(input)
		if err != nil {
			return value{}, err
		}
		args[i] = v
	}
	return fn(args)
}

// functions is the fixed whitelist; nothing outside it is callable
var functions = map[string]func([]value) (value, error){
	"abs":   numericFn1("abs", math.Abs),
	"round": numericFn1("round", math.Round),
	"floor": numericFn1("floor", math.Floor),
	"ceil":  numericFn1("ceil", math.Ceil),
	"min":   numericFnN("min", math.Min),
	"max":   numericFnN("max", math.Max),
	"toFixed": func(args []value) (value, error) {
		if len(args) < 1 || len(args) > 2 || args[0].kind != kindNumber {
			return value{}, fmt.Errorf("toFixed expects a number and an optional precision")
		}
		digits := 0
		if len(args) == 2 {
			if args[1].kind != kindNumber {
				return value{}, fmt.Errorf("toFixed precision must be a number")
			}
			digits = int(args[1].num)
		}
		if digits < 0 || digits > 20 {
			return value{}, fmt.Errorf("toFixed precision out of range")
		}
		return value{kind: kindText, text: strconv.FormatFloat(args[0].num, 'f', digits, 64)}, nil
	},
}

func numericFn1(name string, fn func(float64) float64) func([]value) (value, error) {
	return func(args []value) (value, error) {
		if len(args) != 1 || args[0].kind != kindNumber {
			return value{}, fmt.Errorf("%s expects one number", name)
		}
		return value{kind: kindNumber, num: fn(args[0].num)}, nil
	}
}

func numericFnN(name string, fn func(float64, float64) float64) func([]value) (value, error) {
	return func(args []value) (value, error) {
		if len(args) < 2 {
			return value{}, fmt.Errorf("%s expects at least two numbers", name)
		}
		acc := 0.0
		for i, a := range args {
			if a.kind != kindNumber {
				return value{}, fmt.Errorf("%s expects numbers", name)
			}
			if i == 0 {
				acc = a.num
				continue
			}
			acc = fn(acc, a.num)
		}
		return value{kind: kindNumber, num: acc}, nil
	}
}
