package vm

import (
	"slices"
	"strings"

	"arrayviz/internal/errors"
)

func length(v Value) (int, error) {
	switch v := v.(type) {
	case Str:
		return v.Len(), nil
	case *List:
		return len(v.Elems), nil
	}
	return 0, typeErr("object of type '%s' has no len()", v.TypeName())
}

func toIndex(v Value, what string) (int, error) {
	n, ok := v.(Number)
	if !ok || !n.IsInt() {
		return 0, typeErr("%s indices must be integers, not %s", what, v.TypeName())
	}
	return int(n.I), nil
}

// normalize resolves a possibly negative index against length n.
func normalize(i, n int) (int, bool) {
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}

func indexValue(target, index Value) (Value, error) {
	switch t := target.(type) {
	case *List:
		i, err := toIndex(index, "list")
		if err != nil {
			return nil, err
		}
		i, ok := normalize(i, len(t.Elems))
		if !ok {
			return nil, errors.New(errors.IndexError, "list index out of range", 0, 0)
		}
		return t.Elems[i], nil
	case Str:
		i, err := toIndex(index, "string")
		if err != nil {
			return nil, err
		}
		runes := t.Runes()
		i, ok := normalize(i, len(runes))
		if !ok {
			return nil, errors.New(errors.IndexError, "string index out of range", 0, 0)
		}
		return Str(string(runes[i])), nil
	}
	return nil, typeErr("'%s' object is not subscriptable", target.TypeName())
}

// storeIndex implements target[index] = value.
func storeIndex(t *txn, target, index, value Value) error {
	l, ok := target.(*List)
	if !ok {
		return typeErr("'%s' object does not support item assignment", target.TypeName())
	}
	i, err := toIndex(index, "list")
	if err != nil {
		return err
	}
	i, ok = normalize(i, len(l.Elems))
	if !ok {
		return errors.New(errors.IndexError, "list assignment index out of range", 0, 0)
	}
	elems := slices.Clone(l.Elems)
	elems[i] = value
	t.setElems(l, elems)
	return nil
}

// sliceBound converts an optional slice part; None means absent.
func sliceBound(v Value) (int, bool, error) {
	if v.Kind() == KindNone {
		return 0, false, nil
	}
	n, ok := v.(Number)
	if !ok || !n.IsInt() {
		return 0, false, typeErr("slice indices must be integers or None")
	}
	return int(n.I), true, nil
}

// SliceIndices mirrors Python's slice.indices: it clamps start and stop to
// a sequence of length n and returns the selected positions.
func SliceIndices(n int, start, stop, step Value) ([]int, error) {
	st, hasStep, err := sliceBound(step)
	if err != nil {
		return nil, err
	}
	if !hasStep {
		st = 1
	}
	if st == 0 {
		return nil, errors.New(errors.ValueError, "slice step cannot be zero", 0, 0)
	}

	lower, upper := 0, n
	if st < 0 {
		lower, upper = -1, n-1
	}
	clamp := func(v Value, def int) (int, error) {
		i, ok, err := sliceBound(v)
		if err != nil || !ok {
			return def, err
		}
		if i < 0 {
			i += n
			if i < lower {
				i = lower
			}
		} else if i > upper {
			i = upper
		}
		return i, nil
	}

	var b, e int
	if st > 0 {
		if b, err = clamp(start, lower); err != nil {
			return nil, err
		}
		if e, err = clamp(stop, upper); err != nil {
			return nil, err
		}
	} else {
		if b, err = clamp(start, upper); err != nil {
			return nil, err
		}
		if e, err = clamp(stop, lower); err != nil {
			return nil, err
		}
	}

	var out []int
	if st > 0 {
		for i := b; i < e; i += st {
			out = append(out, i)
		}
	} else {
		for i := b; i > e; i += st {
			out = append(out, i)
		}
	}
	return out, nil
}

func sliceValue(target, start, stop, step Value) (Value, error) {
	switch t := target.(type) {
	case *List:
		idx, err := SliceIndices(len(t.Elems), start, stop, step)
		if err != nil {
			return nil, err
		}
		elems := make([]Value, len(idx))
		for k, i := range idx {
			elems[k] = t.Elems[i]
		}
		return NewList(elems...), nil
	case Str:
		runes := t.Runes()
		idx, err := SliceIndices(len(runes), start, stop, step)
		if err != nil {
			return nil, err
		}
		out := make([]rune, len(idx))
		for k, i := range idx {
			out[k] = runes[i]
		}
		return Str(string(out)), nil
	}
	return nil, typeErr("'%s' object is not subscriptable", target.TypeName())
}

// iterate snapshots the items a for-loop walks over.
func iterate(v Value) (*Iterator, error) {
	switch v := v.(type) {
	case *List:
		return &Iterator{Items: slices.Clone(v.Elems)}, nil
	case Str:
		runes := v.Runes()
		items := make([]Value, len(runes))
		for i, r := range runes {
			items[i] = Str(string(r))
		}
		return &Iterator{Items: items}, nil
	case *Iterator:
		return v, nil
	}
	return nil, typeErr("'%s' object is not iterable", v.TypeName())
}

// interpolate substitutes {name} placeholders from vars; {{ and }} are
// literal braces.
func interpolate(template string, vars map[string]Value) (string, error) {
	var sb strings.Builder
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '{':
			if i+1 < len(runes) && runes[i+1] == '{' {
				sb.WriteRune('{')
				i++
				continue
			}
			end := i + 1
			for end < len(runes) && runes[end] != '}' {
				end++
			}
			if end == len(runes) {
				return "", errors.New(errors.ValueError, "f-string: expecting '}'", 0, 0)
			}
			name := strings.TrimSpace(string(runes[i+1 : end]))
			if name == "" {
				return "", errors.New(errors.ValueError, "f-string: empty expression not allowed", 0, 0)
			}
			v, ok := vars[name]
			if !ok {
				return "", errors.Newf(errors.NameError, 0, 0, "name '%s' is not defined", name)
			}
			sb.WriteString(v.String())
			i = end
		case '}':
			if i+1 < len(runes) && runes[i+1] == '}' {
				i++
			}
			sb.WriteRune('}')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String(), nil
}
