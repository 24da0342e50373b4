package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rebeliceyang/lazysearch/internal/coerce"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// maxDepth bounds nesting of lists and tuples in an expression
const maxDepth = 64

// SyntaxError reports text that is not a valid expression
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

// TypeError reports a well-formed expression whose shape is not a filter
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string { return e.Msg }

// Parse evaluates an expression into a Domain.
//
// The language only has literals: quoted strings, numbers, True/False/None,
// lists and tuples, plus the constructors date(), datetime() and Decimal().
// An optional leading "domain =" is accepted. Nothing in the text can reach
// the host program, so it is safe to evaluate stored expressions.
func Parse(text string) (Domain, error) {
	value, err := Eval(text)
	if err != nil {
		return nil, err
	}
	seq, ok := asSequence(value)
	if !ok {
		return nil, &TypeError{Msg: fmt.Sprintf("expression evaluates to %s, not a filter", describe(value))}
	}
	return toDomain(seq)
}

// Eval evaluates an expression into plain values: string, int64, float64,
// bool, nil, models.Date, time.Time, pgtype.Numeric, []any (lists) and
// tuple (tuples).
func Eval(text string) (any, error) {
	p := &parser{lex: lexer{src: text}}
	p.next()

	// domain = [...]
	if p.tok.kind == tokIdent && p.tok.text == "domain" {
		save := p.lex
		saveTok := p.tok
		p.next()
		if p.tok.kind == tokAssign {
			p.next()
		} else {
			p.lex = save
			p.tok = saveTok
		}
	}

	v, err := p.value(0)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %s after expression", p.tok)
	}
	return v, nil
}

// tuple distinguishes (a, b) from [a, b]; both are sequences
type tuple []any

func asSequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case tuple:
		return s, true
	}
	return nil, false
}

func toDomain(seq []any) (Domain, error) {
	d := make(Domain, 0, len(seq))
	for i, item := range seq {
		if s, ok := item.(string); ok {
			c := Connective(s)
			if (c == And || c == Or) && i == 0 {
				d = append(d, c)
				continue
			}
			return nil, &TypeError{Msg: fmt.Sprintf("unexpected string %q in filter; only a leading 'AND' or 'OR' is allowed", s)}
		}
		sub, ok := asSequence(item)
		if !ok {
			return nil, &TypeError{Msg: fmt.Sprintf("filter element %d is %s, expected a (field, operator, value) tuple or a nested filter", i, describe(item))}
		}
		if isLeaf(sub) {
			leaf, err := toLeaf(sub)
			if err != nil {
				return nil, err
			}
			d = append(d, leaf)
			continue
		}
		nested, err := toDomain(sub)
		if err != nil {
			return nil, err
		}
		d = append(d, nested)
	}
	return d, nil
}

func isLeaf(seq []any) bool {
	if len(seq) == 0 {
		return false
	}
	s, ok := seq[0].(string)
	if !ok {
		return false
	}
	return Connective(s) != And && Connective(s) != Or
}

func toLeaf(seq []any) (Leaf, error) {
	if len(seq) != 3 {
		return Leaf{}, &TypeError{Msg: fmt.Sprintf("condition %v takes exactly 3 elements (field, operator, value), got %d", seq[0], len(seq))}
	}
	path := seq[0].(string)
	if path == "" {
		return Leaf{}, &TypeError{Msg: "condition field name is empty"}
	}
	opText, ok := seq[1].(string)
	if !ok {
		return Leaf{}, &TypeError{Msg: fmt.Sprintf("condition on %q: operator must be a string, got %s", path, describe(seq[1]))}
	}
	op, err := models.ParseOperator(opText)
	if err != nil {
		return Leaf{}, &TypeError{Msg: fmt.Sprintf("condition on %q: %v", path, err)}
	}
	return Leaf{Path: path, Operator: op, Value: plain(seq[2])}, nil
}

// plain converts tuples inside values into lists
func plain(v any) any {
	if s, ok := asSequence(v); ok {
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "None"
	case string:
		return "a string"
	case int64:
		return "an integer"
	case float64:
		return "a float"
	case bool:
		return "a boolean"
	case models.Date:
		return "a date"
	case time.Time:
		return "a datetime"
	case pgtype.Numeric:
		return "a decimal"
	}
	return fmt.Sprintf("%T", v)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokComma
	tokAssign
	tokIdent
	tokString
	tokNumber
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return "string " + strconv.Quote(t.text)
	}
	return strconv.Quote(t.text)
}

type lexer struct {
	src string
	pos int
}

func punctuation(ch byte) (tokenKind, bool) {
	switch ch {
	case '[':
		return tokLBracket, true
	case ']':
		return tokRBracket, true
	case '(':
		return tokLParen, true
	case ')':
		return tokRParen, true
	case ',':
		return tokComma, true
	case '=':
		return tokAssign, true
	}
	return 0, false
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch := l.src[l.pos]
	if kind, ok := punctuation(ch); ok {
		l.pos++
		return token{kind: kind, text: string(ch), pos: start}, nil
	}

	switch {
	case ch == '\'' || ch == '"':
		return l.quoted(ch)
	case ch == '-' || ch == '+' || ch == '.' || (ch >= '0' && ch <= '9'):
		l.pos++
		for l.pos < len(l.src) {
			c := l.src[l.pos]
			if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '_' ||
				((c == '-' || c == '+') && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E')) {
				l.pos++
				continue
			}
			break
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}, nil
	case ch == '_' || unicode.IsLetter(rune(ch)):
		for l.pos < len(l.src) && (l.src[l.pos] == '_' || unicode.IsLetter(rune(l.src[l.pos])) || unicode.IsDigit(rune(l.src[l.pos]))) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], pos: start}, nil
	}
	return token{}, &SyntaxError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", ch)}
}

func (l *lexer) quoted(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return token{}, &SyntaxError{Pos: l.pos, Msg: "unterminated escape"}
			}
			l.pos++
			switch esc := l.src[l.pos]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
		case '\n':
			return token{}, &SyntaxError{Pos: l.pos, Msg: "newline in string"}
		default:
			b.WriteByte(c)
		}
		l.pos++
	}
	return token{}, &SyntaxError{Pos: start, Msg: "unterminated string"}
}

type parser struct {
	lex lexer
	tok token
	err error
}

func (p *parser) next() {
	if p.err != nil {
		return
	}
	tok, err := p.lex.next()
	if err != nil {
		p.err = err
		p.tok = token{kind: tokEOF, pos: p.lex.pos}
		return
	}
	p.tok = tok
}

func (p *parser) errorf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}
	return &SyntaxError{Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) value(depth int) (any, error) {
	if p.err != nil {
		return nil, p.err
	}
	if depth > maxDepth {
		return nil, p.errorf("expression nested deeper than %d levels", maxDepth)
	}

	tok := p.tok
	switch tok.kind {
	case tokLBracket:
		p.next()
		items, _, err := p.items(tokRBracket, depth)
		if err != nil {
			return nil, err
		}
		return items, nil
	case tokLParen:
		p.next()
		items, trailingComma, err := p.items(tokRParen, depth)
		if err != nil {
			return nil, err
		}
		if len(items) == 1 && !trailingComma {
			return items[0], nil
		}
		return tuple(items), nil
	case tokString:
		p.next()
		return tok.text, nil
	case tokNumber:
		p.next()
		return parseNumber(tok)
	case tokIdent:
		p.next()
		switch tok.text {
		case "True", "true":
			return true, nil
		case "False", "false":
			return false, nil
		case "None", "null":
			return nil, nil
		case "date", "datetime", "Decimal":
			return p.call(tok, depth)
		}
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unknown name %q", tok.text)}
	}
	return nil, p.errorf("unexpected %s", tok)
}

// items parses comma separated values up to the closing token
func (p *parser) items(closing tokenKind, depth int) ([]any, bool, error) {
	items := []any{}
	trailingComma := false
	for p.tok.kind != closing {
		if p.tok.kind == tokEOF {
			return nil, false, p.errorf("unexpected end of input, missing closing bracket")
		}
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, false, err
		}
		items = append(items, v)
		trailingComma = false
		if p.tok.kind == tokComma {
			trailingComma = true
			p.next()
			continue
		}
		if p.tok.kind != closing {
			return nil, false, p.errorf("expected ',' or closing bracket, got %s", p.tok)
		}
	}
	p.next()
	return items, trailingComma, p.err
}

func (p *parser) call(name token, depth int) (any, error) {
	if p.tok.kind != tokLParen {
		return nil, p.errorf("expected '(' after %s", name.text)
	}
	p.next()
	args, _, err := p.items(tokRParen, depth)
	if err != nil {
		return nil, err
	}

	switch name.text {
	case "Decimal":
		if len(args) != 1 {
			return nil, &TypeError{Msg: fmt.Sprintf("Decimal() takes 1 argument, got %d", len(args))}
		}
		var text string
		switch a := args[0].(type) {
		case string:
			text = a
		case int64:
			text = strconv.FormatInt(a, 10)
		default:
			return nil, &TypeError{Msg: fmt.Sprintf("Decimal() argument must be a string or integer, got %s", describe(a))}
		}
		n, err := coerce.ParseDecimal(text)
		if err != nil {
			return nil, &TypeError{Msg: fmt.Sprintf("invalid Decimal literal %v: %v", args[0], err)}
		}
		return n, nil
	case "date":
		ints, err := intArgs(name.text, args, 3, 3)
		if err != nil {
			return nil, err
		}
		t := time.Date(ints[0], time.Month(ints[1]), ints[2], 0, 0, 0, 0, time.UTC)
		if t.Day() != ints[2] || int(t.Month()) != ints[1] {
			return nil, &TypeError{Msg: fmt.Sprintf("date(%d, %d, %d) is out of range", ints[0], ints[1], ints[2])}
		}
		return models.DateOf(t), nil
	default:
		ints, err := intArgs(name.text, args, 3, 6)
		if err != nil {
			return nil, err
		}
		for len(ints) < 6 {
			ints = append(ints, 0)
		}
		t := time.Date(ints[0], time.Month(ints[1]), ints[2], ints[3], ints[4], ints[5], 0, time.UTC)
		if t.Day() != ints[2] || int(t.Month()) != ints[1] || t.Hour() != ints[3] || t.Minute() != ints[4] || t.Second() != ints[5] {
			return nil, &TypeError{Msg: fmt.Sprintf("datetime%v is out of range", ints)}
		}
		return t, nil
	}
}

func intArgs(name string, args []any, min, max int) ([]int, error) {
	if len(args) < min || len(args) > max {
		return nil, &TypeError{Msg: fmt.Sprintf("%s() takes %d to %d arguments, got %d", name, min, max, len(args))}
	}
	ints := make([]int, len(args))
	for i, a := range args {
		v, ok := a.(int64)
		if !ok {
			return nil, &TypeError{Msg: fmt.Sprintf("%s() argument %d must be an integer, got %s", name, i+1, describe(a))}
		}
		ints[i] = int(v)
	}
	return ints, nil
}

func parseNumber(tok token) (any, error) {
	text := strings.ReplaceAll(tok.text, "_", "")
	if !strings.ContainsAny(text, ".eE") {
		v, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return v, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("invalid number %q", tok.text)}
	}
	return f, nil
}
