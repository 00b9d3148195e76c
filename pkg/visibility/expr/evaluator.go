package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-checkout/pkg/visibility"
)

// ErrSyntax wraps every parse failure so callers can tell a malformed rule
// apart from an evaluation problem.
var ErrSyntax = errors.New("visibility/expr: syntax error")

// Evaluator is a small rule evaluator for field applicability.
//
// Supported forms:
//   - truthiness: `cardOnFile`
//   - comparisons: `paymentMethod == "credit-card"`, `paymentMethod != "paypal"`
//   - membership: `paymentMethod in ("apple-pay", "google-pay")`
//   - composition: `!a`, `a && b`, `a || (b && c)`
//
// Identifiers read from visibility.Context.Values; the `extras.` prefix reads
// from Context.Extras instead. Parsed rules are cached per rule string.
type Evaluator struct {
	cache sync.Map // rule -> node
}

func New() *Evaluator { return &Evaluator{} }

func (e *Evaluator) Eval(_ string, rule string, ctx visibility.Context) (bool, error) {
	node, err := e.compile(rule)
	if err != nil {
		return false, err
	}
	if node == nil {
		return true, nil
	}
	return node.eval(ctx), nil
}

// Compile parses a rule without evaluating it, which lets schemas reject bad
// rules at construction time.
func (e *Evaluator) Compile(rule string) error {
	_, err := e.compile(rule)
	return err
}

func (e *Evaluator) compile(rule string) (node, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil, nil
	}
	if cached, ok := e.cache.Load(rule); ok {
		return cached.(node), nil
	}
	toks, err := lex(rule)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, syntaxErr("unexpected %q", p.peek().text)
	}
	e.cache.Store(rule, n)
	return n, nil
}

func syntaxErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...))
}

type kind int

const (
	kIdent kind = iota
	kString
	kBool
	kNull
	kEq
	kNeq
	kIn
	kAnd
	kOr
	kNot
	kLParen
	kRParen
	kComma
)

type tok struct {
	kind kind
	text string
}

func lex(src string) ([]tok, error) {
	var out []tok
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			out = append(out, tok{kLParen, "("})
			i++
		case c == ')':
			out = append(out, tok{kRParen, ")"})
			i++
		case c == ',':
			out = append(out, tok{kComma, ","})
			i++
		case strings.HasPrefix(src[i:], "=="):
			out = append(out, tok{kEq, "=="})
			i += 2
		case strings.HasPrefix(src[i:], "!="):
			out = append(out, tok{kNeq, "!="})
			i += 2
		case strings.HasPrefix(src[i:], "&&"):
			out = append(out, tok{kAnd, "&&"})
			i += 2
		case strings.HasPrefix(src[i:], "||"):
			out = append(out, tok{kOr, "||"})
			i += 2
		case c == '!':
			out = append(out, tok{kNot, "!"})
			i++
		case c == '"' || c == '\'':
			end := closingQuote(src, i)
			if end < 0 {
				return nil, syntaxErr("unterminated string literal")
			}
			raw := src[i : end+1]
			if c == '\'' {
				raw = `"` + strings.ReplaceAll(raw[1:len(raw)-1], `"`, `\"`) + `"`
			}
			value, err := strconv.Unquote(raw)
			if err != nil {
				return nil, syntaxErr("invalid string literal %s", src[i:end+1])
			}
			out = append(out, tok{kString, value})
			i = end + 1
		case isIdentByte(c):
			start := i
			for i < len(src) && isIdentByte(src[i]) {
				i++
			}
			word := src[start:i]
			switch strings.ToLower(word) {
			case "true", "false":
				out = append(out, tok{kBool, strings.ToLower(word)})
			case "null", "nil":
				out = append(out, tok{kNull, "null"})
			case "in":
				out = append(out, tok{kIn, "in"})
			default:
				out = append(out, tok{kIdent, word})
			}
		default:
			return nil, syntaxErr("unexpected character %q", c)
		}
	}
	return out, nil
}

func closingQuote(src string, open int) int {
	quote := src[open]
	for i := open + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

type parser struct {
	toks []tok
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() tok {
	if p.done() {
		return tok{kind: -1, text: "<end>"}
	}
	return p.toks[p.pos]
}

func (p *parser) accept(k kind) bool {
	if !p.done() && p.toks[p.pos].kind == k {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(kOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept(kAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.accept(kNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.accept(kLParen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(kRParen) {
			return nil, syntaxErr("missing closing ')'")
		}
		return inner, nil
	}
	if p.done() {
		return nil, syntaxErr("unexpected end of rule")
	}
	ident := p.peek()
	if ident.kind == kBool {
		p.pos++
		return constNode(ident.text == "true"), nil
	}
	if ident.kind != kIdent {
		return nil, syntaxErr("expected identifier, got %q", ident.text)
	}
	p.pos++

	switch {
	case p.accept(kEq):
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		return compareNode{ident: ident.text, want: lit}, nil
	case p.accept(kNeq):
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		return notNode{compareNode{ident: ident.text, want: lit}}, nil
	case p.accept(kIn):
		set, err := p.literalList()
		if err != nil {
			return nil, err
		}
		return inNode{ident: ident.text, set: set}, nil
	}
	return truthyNode{ident: ident.text}, nil
}

func (p *parser) literal() (value, error) {
	if p.done() {
		return value{}, syntaxErr("missing literal")
	}
	t := p.toks[p.pos]
	p.pos++
	switch t.kind {
	case kString, kIdent:
		return value{text: t.text}, nil
	case kBool:
		return value{text: t.text, isBool: true}, nil
	case kNull:
		return value{isNull: true}, nil
	}
	return value{}, syntaxErr("expected literal, got %q", t.text)
}

func (p *parser) literalList() ([]value, error) {
	if !p.accept(kLParen) {
		return nil, syntaxErr("expected '(' after in")
	}
	var out []value
	for {
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
		if p.accept(kRParen) {
			return out, nil
		}
		if !p.accept(kComma) {
			return nil, syntaxErr("expected ',' or ')' in list")
		}
	}
}

type node interface {
	eval(ctx visibility.Context) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) bool { return n.left.eval(ctx) || n.right.eval(ctx) }

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) bool { return n.left.eval(ctx) && n.right.eval(ctx) }

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) bool { return !n.inner.eval(ctx) }

type constNode bool

func (n constNode) eval(visibility.Context) bool { return bool(n) }

type value struct {
	text   string
	isBool bool
	isNull bool
}

func (v value) matches(got any, present bool) bool {
	switch {
	case v.isNull:
		return !present || got == nil || asString(got) == ""
	case v.isBool:
		return truthy(got) == (v.text == "true")
	default:
		return asString(got) == v.text
	}
}

type compareNode struct {
	ident string
	want  value
}

func (n compareNode) eval(ctx visibility.Context) bool {
	got, ok := lookup(ctx, n.ident)
	return n.want.matches(got, ok)
}

type inNode struct {
	ident string
	set   []value
}

func (n inNode) eval(ctx visibility.Context) bool {
	got, ok := lookup(ctx, n.ident)
	for _, v := range n.set {
		if v.matches(got, ok) {
			return true
		}
	}
	return false
}

type truthyNode struct{ ident string }

func (n truthyNode) eval(ctx visibility.Context) bool {
	got, _ := lookup(ctx, n.ident)
	return truthy(got)
}

func lookup(ctx visibility.Context, key string) (any, bool) {
	if rest, ok := strings.CutPrefix(key, "extras."); ok {
		v, found := ctx.Extras[rest]
		return v, found
	}
	v, found := ctx.Values[key]
	return v, found
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(t)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != ""
	case fmt.Stringer:
		return t.String() != ""
	default:
		return true
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
