package expr

import (
	"strconv"
	"strings"
	"unicode"
)

// Node kinds.
const (
	nodeNumber = iota
	nodeString
	nodeBool
	nodeName
	nodeUnary
	nodeBinary
	nodeCall
)

type node struct {
	kind  int
	num   float64
	str   string // string literal, name, operator, or call target
	left  *node
	right *node
	arg   *node
}

type token struct {
	kind int // same space as node kinds for literals, plus punctuation below
	num  float64
	str  string
}

const (
	tokEOF = iota + 100
	tokOp
	tokLParen
	tokRParen
)

type parser struct {
	source string
	tokens []token
	pos    int
	nodes  int
	opts   Options
	err    error
}

func newParser(source string, opts Options) *parser {
	return &parser{source: source, opts: opts}
}

func (p *parser) parse() (*node, error) {
	if err := p.lex(); err != nil {
		return nil, err
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, errf(p.source, "unexpected trailing input %q", p.peek().str)
	}
	return n, nil
}

func (p *parser) lex() error {
	src := p.source
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			p.tokens = append(p.tokens, token{kind: tokLParen})
			i++
		case c == ')':
			p.tokens = append(p.tokens, token{kind: tokRParen})
			i++
		case strings.ContainsRune("+-*/%", rune(c)):
			p.tokens = append(p.tokens, token{kind: tokOp, str: string(c)})
			i++
		case c == '=' || c == '!' || c == '<' || c == '>':
			op := string(c)
			if i+1 < len(src) && src[i+1] == '=' {
				op += "="
				i++
			}
			i++
			if op == "=" || op == "!" {
				return errf(p.source, "invalid operator %q", op)
			}
			p.tokens = append(p.tokens, token{kind: tokOp, str: op})
		case c == '\'' || c == '"':
			end := i + 1
			for end < len(src) && src[end] != c {
				end++
			}
			if end >= len(src) {
				return errf(p.source, "unterminated string literal")
			}
			lit := src[i+1 : end]
			if len(lit) > p.opts.MaxStringLen {
				return errf(p.source, "string literal exceeds %d bytes", p.opts.MaxStringLen)
			}
			p.tokens = append(p.tokens, token{kind: nodeString, str: lit})
			i = end + 1
		case c >= '0' && c <= '9' || c == '.':
			end := i
			for end < len(src) && (src[end] >= '0' && src[end] <= '9' || src[end] == '.') {
				end++
			}
			lit := src[i:end]
			if len(lit) > p.opts.MaxNumberLen {
				return errf(p.source, "numeric literal exceeds %d digits", p.opts.MaxNumberLen)
			}
			v, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return errf(p.source, "invalid number %q", lit)
			}
			p.tokens = append(p.tokens, token{kind: nodeNumber, num: v})
			i = end
		case unicode.IsLetter(rune(c)) || c == '_':
			end := i
			for end < len(src) && (unicode.IsLetter(rune(src[end])) || unicode.IsDigit(rune(src[end])) || src[end] == '_' || src[end] == '.') {
				end++
			}
			word := src[i:end]
			switch word {
			case "and", "or", "not":
				p.tokens = append(p.tokens, token{kind: tokOp, str: word})
			case "true", "True":
				p.tokens = append(p.tokens, token{kind: nodeBool, num: 1})
			case "false", "False":
				p.tokens = append(p.tokens, token{kind: nodeBool, num: 0})
			default:
				p.tokens = append(p.tokens, token{kind: nodeName, str: word})
			}
			i = end
		default:
			return errf(p.source, "illegal character %q", string(c))
		}
	}
	p.tokens = append(p.tokens, token{kind: tokEOF})
	return nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) newNode(n node) (*node, error) {
	p.nodes++
	if p.nodes > p.opts.MaxNodes {
		return nil, errf(p.source, "expression exceeds %d-node budget", p.opts.MaxNodes)
	}
	out := n
	return &out, nil
}

func (p *parser) parseOr() (*node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && p.peek().str == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left, err = p.newNode(node{kind: nodeBinary, str: "or", left: left, right: right})
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseAnd() (*node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && p.peek().str == "and" {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left, err = p.newNode(node{kind: nodeBinary, str: "and", left: left, right: right})
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseNot() (*node, error) {
	if p.peek().kind == tokOp && p.peek().str == "not" {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return p.newNode(node{kind: nodeUnary, str: "not", arg: operand})
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func (p *parser) parseComparison() (*node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && comparisonOps[p.peek().str] {
		op := p.next().str
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left, err = p.newNode(node{kind: nodeBinary, str: op, left: left, right: right})
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (*node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().str == "+" || p.peek().str == "-") {
		op := p.next().str
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left, err = p.newNode(node{kind: nodeBinary, str: op, left: left, right: right})
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (*node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().str == "*" || p.peek().str == "/" || p.peek().str == "%") {
		op := p.next().str
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left, err = p.newNode(node{kind: nodeBinary, str: op, left: left, right: right})
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (*node, error) {
	if p.peek().kind == tokOp && p.peek().str == "-" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.newNode(node{kind: nodeUnary, str: "-", arg: operand})
	}
	return p.parsePrimary()
}

// castFunctions is the complete call whitelist.
var castFunctions = map[string]bool{"int": true, "float": true}

func (p *parser) parsePrimary() (*node, error) {
	t := p.next()
	switch t.kind {
	case nodeNumber:
		return p.newNode(node{kind: nodeNumber, num: t.num})
	case nodeString:
		return p.newNode(node{kind: nodeString, str: t.str})
	case nodeBool:
		return p.newNode(node{kind: nodeBool, num: t.num})
	case nodeName:
		if p.peek().kind == tokLParen {
			if !castFunctions[t.str] {
				return nil, errf(p.source, "call to %q is not allowed", t.str)
			}
			p.next()
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if p.next().kind != tokRParen {
				return nil, errf(p.source, "expected closing parenthesis after %s(...)", t.str)
			}
			return p.newNode(node{kind: nodeCall, str: t.str, arg: arg})
		}
		if strings.Contains(t.str, "__") {
			return nil, errf(p.source, "name %q contains a double underscore", t.str)
		}
		return p.newNode(node{kind: nodeName, str: t.str})
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, errf(p.source, "expected closing parenthesis")
		}
		return inner, nil
	case tokEOF:
		return nil, errf(p.source, "unexpected end of expression")
	default:
		return nil, errf(p.source, "unexpected token %q", t.str)
	}
}
