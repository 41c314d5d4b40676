package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the runtime value variants.
type Kind uint8

const (
	KindNone Kind = iota
	KindNumber
	KindStr
	KindBool
	KindList
	KindFunction
	KindIterator
)

// Value is the closed set of runtime values: Number, Str, Bool, *List,
// *Function, NoneType, plus the *Iterator a for-loop keeps on the stack.
type Value interface {
	Kind() Kind
	TypeName() string
	// String is the value as print() shows it.
	String() string
	// Repr is the value as it appears inside a list.
	Repr() string
}

// Number is an int or a float; Float selects which field is meaningful.
type Number struct {
	I     int64
	F     float64
	Float bool
}

func Int(i int64) Number     { return Number{I: i} }
func Float(f float64) Number { return Number{F: f, Float: true} }

// Value returns the number as a float64 regardless of representation.
func (n Number) Value() float64 {
	if n.Float {
		return n.F
	}
	return float64(n.I)
}

// IsInt reports whether the number holds an integer.
func (n Number) IsInt() bool { return !n.Float }

func (Number) Kind() Kind { return KindNumber }

func (n Number) TypeName() string {
	if n.Float {
		return "float"
	}
	return "int"
}

func (n Number) String() string {
	if !n.Float {
		return strconv.FormatInt(n.I, 10)
	}
	return formatFloat(n.F)
}

func (n Number) Repr() string { return n.String() }

// formatFloat renders a float the way Python's repr does.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	exp := int(math.Floor(math.Log10(math.Abs(f))))
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

type Str string

func (Str) Kind() Kind       { return KindStr }
func (Str) TypeName() string { return "str" }
func (s Str) String() string { return string(s) }
func (s Str) Repr() string   { return quote(string(s)) }
func (s Str) Runes() []rune  { return []rune(string(s)) }
func (s Str) Len() int       { return len([]rune(string(s))) }

// quote mimics Python's string repr: single quotes unless the text
// contains a single quote and no double quote.
func quote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var sb strings.Builder
	sb.WriteByte(q)
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r == rune(q) {
				sb.WriteByte('\\')
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

type Bool bool

func (Bool) Kind() Kind       { return KindBool }
func (Bool) TypeName() string { return "bool" }
func (b Bool) Repr() string   { return b.String() }

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}

// NoneType is the type of None.
type NoneType struct{}

// None is the only NoneType value.
var None = NoneType{}

func (NoneType) Kind() Kind       { return KindNone }
func (NoneType) TypeName() string { return "NoneType" }
func (NoneType) String() string   { return "None" }
func (NoneType) Repr() string     { return "None" }

// List is a mutable sequence shared by reference, as in Python. The VM never
// writes into an Elems backing array after publishing it: mutations install a
// fresh slice, which is what lets undo restore the previous header.
type List struct {
	Elems []Value
}

func NewList(elems ...Value) *List {
	return &List{Elems: elems}
}

func (*List) Kind() Kind       { return KindList }
func (*List) TypeName() string { return "list" }
func (l *List) String() string { return l.Repr() }

func (l *List) Repr() string {
	return l.repr(map[*List]bool{})
}

func (l *List) repr(seen map[*List]bool) string {
	if seen[l] {
		return "[...]"
	}
	seen[l] = true
	defer delete(seen, l)

	parts := make([]string, len(l.Elems))
	for i, v := range l.Elems {
		if inner, ok := v.(*List); ok {
			parts[i] = inner.repr(seen)
			continue
		}
		parts[i] = v.Repr()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Function is a user-defined function: its compiled body runs in the
// caller's variable mapping after a whole-mapping snapshot.
type Function struct {
	Name   string
	Params []string
	Body   []Command
}

// Arity is the fixed number of parameters.
func (f *Function) Arity() int { return len(f.Params) }

func (*Function) Kind() Kind       { return KindFunction }
func (*Function) TypeName() string { return "function" }
func (f *Function) String() string { return fmt.Sprintf("<function %s>", f.Name) }
func (f *Function) Repr() string   { return f.String() }

// Iterator walks a snapshot of a list or string for a for-loop.
type Iterator struct {
	Items []Value
	Next  int
}

func (*Iterator) Kind() Kind        { return KindIterator }
func (*Iterator) TypeName() string  { return "iterator" }
func (it *Iterator) String() string { return fmt.Sprintf("<iterator %d/%d>", it.Next, len(it.Items)) }
func (it *Iterator) Repr() string   { return it.String() }
func (it *Iterator) HasNext() bool  { return it.Next < len(it.Items) }

// Truthy implements Python truthiness.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Number:
		return v.Value() != 0
	case Str:
		return v != ""
	case *List:
		return len(v.Elems) > 0
	case NoneType:
		return false
	}
	return true
}

// ClassName renders the type tag type() reports.
func ClassName(v Value) string {
	return fmt.Sprintf("<class '%s'>", v.TypeName())
}
