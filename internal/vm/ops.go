package vm

import (
	"math"
	"strings"

	"arrayviz/internal/errors"
)

func typeErr(format string, args ...any) *errors.Error {
	return errors.Newf(errors.TypeError, 0, 0, format, args...)
}

// BinaryOp applies an arithmetic or boolean operator. and/or return the
// selected operand, as in Python.
func BinaryOp(op string, left, right Value) (Value, error) {
	switch op {
	case "and":
		if !Truthy(left) {
			return left, nil
		}
		return right, nil
	case "or":
		if Truthy(left) {
			return left, nil
		}
		return right, nil
	}

	if l, ok := left.(Number); ok {
		if r, ok := right.(Number); ok {
			return arith(op, l, r)
		}
	}

	switch op {
	case "+":
		switch l := left.(type) {
		case Str:
			if r, ok := right.(Str); ok {
				return l + r, nil
			}
		case *List:
			if r, ok := right.(*List); ok {
				elems := make([]Value, 0, len(l.Elems)+len(r.Elems))
				elems = append(elems, l.Elems...)
				elems = append(elems, r.Elems...)
				return NewList(elems...), nil
			}
		}
	case "*":
		if n, ok := right.(Number); ok && n.IsInt() {
			if v, ok, err := repeat(left, n.I); ok {
				return v, err
			}
		}
		if n, ok := left.(Number); ok && n.IsInt() {
			if v, ok, err := repeat(right, n.I); ok {
				return v, err
			}
		}
	}
	return nil, typeErr("unsupported operand type(s) for %s: '%s' and '%s'", op, left.TypeName(), right.TypeName())
}

// repeat builds v*n for a str or list. Results longer than maxRange
// elements raise instead of exhausting memory.
func repeat(v Value, n int64) (Value, bool, error) {
	var size int
	switch v := v.(type) {
	case Str:
		size = len(v)
	case *List:
		size = len(v.Elems)
	default:
		return nil, false, nil
	}
	if n <= 0 || size == 0 {
		n = 0
	} else if n > maxRange/int64(size) {
		return nil, true, errors.Newf(errors.ValueError, 0, 0, "repeat result too large (%d * %d)", size, n)
	}

	switch v := v.(type) {
	case Str:
		return Str(strings.Repeat(string(v), int(n))), true, nil
	case *List:
		elems := make([]Value, 0, size*int(n))
		for i := int64(0); i < n; i++ {
			elems = append(elems, v.Elems...)
		}
		return NewList(elems...), true, nil
	}
	return nil, false, nil
}

func arith(op string, l, r Number) (Value, error) {
	if l.IsInt() && r.IsInt() {
		return intArith(op, l.I, r.I)
	}
	a, b := l.Value(), r.Value()
	switch op {
	case "+":
		return Float(a + b), nil
	case "-":
		return Float(a - b), nil
	case "*":
		return Float(a * b), nil
	case "/":
		if b == 0 {
			return nil, errors.New(errors.ZeroDivisionError, "float division by zero", 0, 0)
		}
		return Float(a / b), nil
	case "//":
		if b == 0 {
			return nil, errors.New(errors.ZeroDivisionError, "float floor division by zero", 0, 0)
		}
		return Float(math.Floor(a / b)), nil
	case "%":
		if b == 0 {
			return nil, errors.New(errors.ZeroDivisionError, "float modulo", 0, 0)
		}
		return Float(floatMod(a, b)), nil
	case "**":
		if a == 0 && b < 0 {
			return nil, errors.New(errors.ZeroDivisionError, "0.0 cannot be raised to a negative power", 0, 0)
		}
		return Float(math.Pow(a, b)), nil
	}
	return nil, typeErr("unsupported operand type(s) for %s: '%s' and '%s'", op, l.TypeName(), r.TypeName())
}

// intArith keeps int results while they fit in int64 and falls back to
// float otherwise, the same way intPow does.
func intArith(op string, a, b int64) (Value, error) {
	switch op {
	case "+":
		c := a + b
		if (a^c)&(b^c) < 0 {
			return Float(float64(a) + float64(b)), nil
		}
		return Int(c), nil
	case "-":
		c := a - b
		if (a^b)&(a^c) < 0 {
			return Float(float64(a) - float64(b)), nil
		}
		return Int(c), nil
	case "*":
		c := a * b
		if a != 0 && (c/a != b || (a == -1 && b == math.MinInt64)) {
			return Float(float64(a) * float64(b)), nil
		}
		return Int(c), nil
	case "/":
		if b == 0 {
			return nil, errors.New(errors.ZeroDivisionError, "division by zero", 0, 0)
		}
		return Float(float64(a) / float64(b)), nil
	case "//":
		if b == 0 {
			return nil, errors.New(errors.ZeroDivisionError, "integer division or modulo by zero", 0, 0)
		}
		if a == math.MinInt64 && b == -1 {
			return Float(-float64(a)), nil
		}
		return Int(floorDiv(a, b)), nil
	case "%":
		if b == 0 {
			return nil, errors.New(errors.ZeroDivisionError, "integer modulo by zero", 0, 0)
		}
		return Int(a - floorDiv(a, b)*b), nil
	case "**":
		if b < 0 {
			if a == 0 {
				return nil, errors.New(errors.ZeroDivisionError, "0.0 cannot be raised to a negative power", 0, 0)
			}
			return Float(math.Pow(float64(a), float64(b))), nil
		}
		return intPow(a, b), nil
	}
	return nil, typeErr("unsupported operand type(s) for %s: 'int' and 'int'", op)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floatMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// intPow falls back to float when the result leaves the int64 range.
func intPow(base, exp int64) Value {
	result := int64(1)
	b := base
	for e := exp; e > 0; e >>= 1 {
		if e&1 == 1 {
			next := result * b
			if b != 0 && next/b != result {
				return Float(math.Pow(float64(base), float64(exp)))
			}
			result = next
		}
		if e > 1 {
			sq := b * b
			if b != 0 && sq/b != b {
				return Float(math.Pow(float64(base), float64(exp)))
			}
			b = sq
		}
	}
	return Int(result)
}

// UnaryOp applies -, + or not.
func UnaryOp(op string, v Value) (Value, error) {
	switch op {
	case "not":
		return Bool(!Truthy(v)), nil
	case "-":
		if n, ok := v.(Number); ok {
			return negate(n), nil
		}
	case "+":
		if n, ok := v.(Number); ok {
			return n, nil
		}
	}
	return nil, typeErr("bad operand type for unary %s: '%s'", op, v.TypeName())
}

// negate falls back to float for the one int64 without a positive
// counterpart.
func negate(n Number) Value {
	if !n.IsInt() {
		return Float(-n.F)
	}
	if n.I == math.MinInt64 {
		return Float(-float64(n.I))
	}
	return Int(-n.I)
}

// CompareOp evaluates a comparison operator to a Bool.
func CompareOp(op string, left, right Value) (Value, error) {
	switch op {
	case "==", "!=":
		eq, err := equal(op, left, right)
		if err != nil {
			return nil, err
		}
		return Bool(eq == (op == "==")), nil
	case "<", "<=", ">", ">=":
		c, err := compare(op, left, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case "<":
			return Bool(c < 0), nil
		case "<=":
			return Bool(c <= 0), nil
		case ">":
			return Bool(c > 0), nil
		default:
			return Bool(c >= 0), nil
		}
	case "in", "not in":
		in, err := contains(right, left)
		if err != nil {
			return nil, err
		}
		return Bool(in == (op == "in")), nil
	}
	return nil, typeErr("unknown comparison operator %s", op)
}

// equal compares two values; mismatched kinds raise TypeError unless one
// side is None.
func equal(op string, a, b Value) (bool, error) {
	if a.Kind() == KindNone || b.Kind() == KindNone {
		return a.Kind() == b.Kind(), nil
	}
	if a.Kind() != b.Kind() {
		return false, typeErr("'%s' not supported between instances of '%s' and '%s'", op, a.TypeName(), b.TypeName())
	}
	return Equal(a, b), nil
}

// Equal is structural equality; values of different kinds are unequal.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Number:
		b, ok := b.(Number)
		if !ok {
			return false
		}
		if a.IsInt() && b.IsInt() {
			return a.I == b.I
		}
		return a.Value() == b.Value()
	case Str:
		b, ok := b.(Str)
		return ok && a == b
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case NoneType:
		return b.Kind() == KindNone
	case *List:
		b, ok := b.(*List)
		if !ok {
			return false
		}
		if a == b {
			return true
		}
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// compare orders numbers, strings and lists (lexicographically).
func compare(op string, a, b Value) (int, error) {
	switch a := a.(type) {
	case Number:
		if b, ok := b.(Number); ok {
			if a.IsInt() && b.IsInt() {
				return cmpInt(a.I, b.I), nil
			}
			x, y := a.Value(), b.Value()
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	case Str:
		if b, ok := b.(Str); ok {
			return strings.Compare(string(a), string(b)), nil
		}
	case *List:
		if b, ok := b.(*List); ok {
			for i := 0; i < len(a.Elems) && i < len(b.Elems); i++ {
				if Equal(a.Elems[i], b.Elems[i]) {
					continue
				}
				return compare(op, a.Elems[i], b.Elems[i])
			}
			return cmpInt(int64(len(a.Elems)), int64(len(b.Elems))), nil
		}
	}
	return 0, typeErr("'%s' not supported between instances of '%s' and '%s'", op, a.TypeName(), b.TypeName())
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func contains(container, item Value) (bool, error) {
	switch c := container.(type) {
	case *List:
		for _, e := range c.Elems {
			if Equal(e, item) {
				return true, nil
			}
		}
		return false, nil
	case Str:
		s, ok := item.(Str)
		if !ok {
			return false, typeErr("'in <string>' requires string as left operand, not %s", item.TypeName())
		}
		return strings.Contains(string(c), string(s)), nil
	}
	return false, typeErr("argument of type '%s' is not iterable", container.TypeName())
}
