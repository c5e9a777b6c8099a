package expr

import (
	"math"
	"strconv"
	"strings"
)

type evaluator struct {
	source string
	vars   map[string]any
}

func (ev *evaluator) eval(n *node) (any, error) {
	switch n.kind {
	case nodeNumber:
		return n.num, nil
	case nodeString:
		return n.str, nil
	case nodeBool:
		return n.num != 0, nil
	case nodeName:
		return ev.lookup(n.str)
	case nodeUnary:
		return ev.evalUnary(n)
	case nodeBinary:
		return ev.evalBinary(n)
	case nodeCall:
		return ev.evalCall(n)
	default:
		return nil, errf(ev.source, "internal: unknown node kind %d", n.kind)
	}
}

func (ev *evaluator) lookup(name string) (any, error) {
	if strings.Contains(name, "__") {
		return nil, errf(ev.source, "name %q contains a double underscore", name)
	}
	v, ok := ev.vars[name]
	if !ok {
		return nil, errf(ev.source, "undeclared name %q", name)
	}
	return v, nil
}

func (ev *evaluator) evalUnary(n *node) (any, error) {
	v, err := ev.eval(n.arg)
	if err != nil {
		return nil, err
	}
	switch n.str {
	case "not":
		return !truthy(v), nil
	case "-":
		f, ok := asNumber(v)
		if !ok {
			return nil, errf(ev.source, "cannot negate %T", v)
		}
		return -f, nil
	default:
		return nil, errf(ev.source, "internal: unknown unary %q", n.str)
	}
}

func (ev *evaluator) evalBinary(n *node) (any, error) {
	// Short-circuit boolean operators
	if n.str == "and" || n.str == "or" {
		left, err := ev.eval(n.left)
		if err != nil {
			return nil, err
		}
		if n.str == "and" && !truthy(left) {
			return false, nil
		}
		if n.str == "or" && truthy(left) {
			return true, nil
		}
		right, err := ev.eval(n.right)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	left, err := ev.eval(n.left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.right)
	if err != nil {
		return nil, err
	}

	switch n.str {
	case "+":
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				if len(ls)+len(rs) > DefaultOptions().MaxStringLen*4 {
					return nil, errf(ev.source, "concatenation result too large")
				}
				return ls + rs, nil
			}
		}
		return ev.arith(left, right, "+")
	case "-", "*", "/", "%":
		return ev.arith(left, right, n.str)
	case "==", "!=":
		eq := equal(left, right)
		if n.str == "!=" {
			return !eq, nil
		}
		return eq, nil
	case "<", "<=", ">", ">=":
		return ev.compare(left, right, n.str)
	default:
		return nil, errf(ev.source, "internal: unknown operator %q", n.str)
	}
}

func (ev *evaluator) arith(left, right any, op string) (any, error) {
	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if !lok || !rok {
		return nil, errf(ev.source, "operator %q needs numeric operands, got %T and %T", op, left, right)
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, errf(ev.source, "division by zero")
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, errf(ev.source, "modulo by zero")
		}
		return math.Mod(lf, rf), nil
	}
	return nil, errf(ev.source, "internal: unknown arithmetic %q", op)
}

func (ev *evaluator) compare(left, right any, op string) (any, error) {
	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if lok && rok {
		switch op {
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}

	ls, lsok := left.(string)
	rs, rsok := right.(string)
	if lsok && rsok {
		switch op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		}
	}

	return nil, errf(ev.source, "cannot compare %T with %T", left, right)
}

func (ev *evaluator) evalCall(n *node) (any, error) {
	v, err := ev.eval(n.arg)
	if err != nil {
		return nil, err
	}
	f, ok := asNumber(v)
	if !ok {
		if s, isStr := v.(string); isStr {
			f, ok = parseNumericString(s)
		}
	}
	if !ok {
		return nil, errf(ev.source, "%s() cannot convert %T", n.str, v)
	}
	switch n.str {
	case "int":
		return math.Trunc(f), nil
	case "float":
		return f, nil
	}
	return nil, errf(ev.source, "internal: unknown call %q", n.str)
}

func equal(left, right any) bool {
	lf, lok := asNumber(left)
	rf, rok := asNumber(right)
	if lok && rok {
		return lf == rf
	}
	return left == right
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func parseNumericString(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
