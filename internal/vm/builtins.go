package vm

import (
	"math"
	"strconv"
	"strings"

	"arrayviz/internal/errors"
)

// IterBuiltin converts a for-loop iterable into the iterator the loop header
// advances. It is emitted by the compiler and not callable by name.
const IterBuiltin = "__iter__"

// maxRange bounds the sequences range() and repetition materialize.
const maxRange = 1 << 20

type builtin func(args []Value) (Value, error)

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		IterBuiltin: builtinIter,
		"range":     builtinRange,
		"str":       builtinStr,
		"int":       builtinInt,
		"float":     builtinFloat,
		"bool":      builtinBool,
		"abs":       builtinAbs,
		"min":       func(args []Value) (Value, error) { return extremum("min", args, -1) },
		"max":       func(args []Value) (Value, error) { return extremum("max", args, 1) },
		"sum":       builtinSum,
	}
}

// IsBuiltin reports whether name is a builtin reached through CallBuiltin.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok && name != IterBuiltin
}

func callBuiltin(name string, args []Value) (Value, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, errors.Newf(errors.NameError, 0, 0, "name '%s' is not defined", name)
	}
	return fn(args)
}

func builtinIter(args []Value) (Value, error) {
	if err := arity("iter", args, 1, 1); err != nil {
		return nil, err
	}
	return iterate(args[0])
}

func intArg(fn string, v Value) (int64, error) {
	n, ok := v.(Number)
	if !ok || !n.IsInt() {
		return 0, typeErr("%s(): '%s' object cannot be interpreted as an integer", fn, v.TypeName())
	}
	return n.I, nil
}

func builtinRange(args []Value) (Value, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}
	bounds := make([]int64, len(args))
	for i, a := range args {
		n, err := intArg("range", a)
		if err != nil {
			return nil, err
		}
		bounds[i] = n
	}
	var start, stop, step int64 = 0, 0, 1
	switch len(bounds) {
	case 1:
		stop = bounds[0]
	case 2:
		start, stop = bounds[0], bounds[1]
	case 3:
		start, stop, step = bounds[0], bounds[1], bounds[2]
	}
	if step == 0 {
		return nil, errors.New(errors.ValueError, "range() arg 3 must not be zero", 0, 0)
	}
	var elems []Value
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		if len(elems) == maxRange {
			return nil, errors.Newf(errors.ValueError, 0, 0, "range() is limited to %d elements", maxRange)
		}
		elems = append(elems, Int(i))
	}
	return NewList(elems...), nil
}

func builtinStr(args []Value) (Value, error) {
	if err := arity("str", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Str(""), nil
	}
	return Str(args[0].String()), nil
}

func builtinInt(args []Value) (Value, error) {
	if err := arity("int", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Int(0), nil
	}
	switch v := args[0].(type) {
	case Number:
		if v.IsInt() {
			return v, nil
		}
		if math.IsInf(v.F, 0) || math.IsNaN(v.F) {
			return nil, errors.Newf(errors.ValueError, 0, 0, "cannot convert float %s to integer", v)
		}
		t := math.Trunc(v.F)
		if t < math.MinInt64 || t >= math.MaxInt64 {
			return nil, errors.Newf(errors.ValueError, 0, 0, "float %s is out of integer range", v)
		}
		return Int(int64(t)), nil
	case Bool:
		if v {
			return Int(1), nil
		}
		return Int(0), nil
	case Str:
		text := strings.TrimSpace(string(v))
		n, err := strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 10, 64)
		if err != nil || text == "" {
			return nil, errors.Newf(errors.ValueError, 0, 0, "invalid literal for int() with base 10: %s", v.Repr())
		}
		return Int(n), nil
	}
	return nil, typeErr("int() argument must be a string or a number, not '%s'", args[0].TypeName())
}

func builtinFloat(args []Value) (Value, error) {
	if err := arity("float", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Float(0), nil
	}
	switch v := args[0].(type) {
	case Number:
		return Float(v.Value()), nil
	case Bool:
		if v {
			return Float(1), nil
		}
		return Float(0), nil
	case Str:
		text := strings.ToLower(strings.TrimSpace(string(v)))
		switch text {
		case "inf", "+inf", "infinity":
			return Float(math.Inf(1)), nil
		case "-inf", "-infinity":
			return Float(math.Inf(-1)), nil
		case "nan":
			return Float(math.NaN()), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errors.Newf(errors.ValueError, 0, 0, "could not convert string to float: %s", v.Repr())
		}
		return Float(f), nil
	}
	return nil, typeErr("float() argument must be a string or a number, not '%s'", args[0].TypeName())
}

func builtinBool(args []Value) (Value, error) {
	if err := arity("bool", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Bool(false), nil
	}
	return Bool(Truthy(args[0])), nil
}

func builtinAbs(args []Value) (Value, error) {
	if err := arity("abs", args, 1, 1); err != nil {
		return nil, err
	}
	n, ok := args[0].(Number)
	if !ok {
		return nil, typeErr("bad operand type for abs(): '%s'", args[0].TypeName())
	}
	if n.IsInt() {
		if n.I < 0 {
			return negate(n), nil
		}
		return n, nil
	}
	return Float(math.Abs(n.F)), nil
}

// extremum implements min (sign -1) and max (sign 1) over one iterable or
// several arguments. Ties keep the first candidate.
func extremum(name string, args []Value, sign int) (Value, error) {
	if len(args) == 0 {
		return nil, typeErr("%s expected at least 1 argument, got 0", name)
	}
	items := args
	if len(args) == 1 {
		it, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		items = it.Items
	}
	if len(items) == 0 {
		return nil, errors.Newf(errors.ValueError, 0, 0, "%s() arg is an empty sequence", name)
	}
	best := items[0]
	for _, v := range items[1:] {
		op := "<"
		if sign > 0 {
			op = ">"
		}
		c, err := compare(op, v, best)
		if err != nil {
			return nil, err
		}
		if c*sign > 0 {
			best = v
		}
	}
	return best, nil
}

func builtinSum(args []Value) (Value, error) {
	if err := arity("sum", args, 1, 2); err != nil {
		return nil, err
	}
	it, err := iterate(args[0])
	if err != nil {
		return nil, err
	}
	var total Value = Int(0)
	if len(args) == 2 {
		total = args[1]
	}
	for _, v := range it.Items {
		if _, ok := v.(Number); !ok {
			return nil, typeErr("unsupported operand type(s) for +: '%s' and '%s'", total.TypeName(), v.TypeName())
		}
		if total, err = BinaryOp("+", total, v); err != nil {
			return nil, err
		}
	}
	return total, nil
}
