package vm

import (
	"slices"
	"strings"

	"arrayviz/internal/errors"
)

func attrErr(recv Value, name string) *errors.Error {
	return typeErr("'%s' object has no attribute '%s'", recv.TypeName(), name)
}

func arity(name string, args []Value, min, max int) error {
	n := len(args)
	if n >= min && n <= max {
		return nil
	}
	switch {
	case min == max && min == 0:
		return typeErr("%s() takes no arguments (%d given)", name, n)
	case min == max && min == 1:
		return typeErr("%s() takes exactly one argument (%d given)", name, n)
	case min == max:
		return typeErr("%s expected %d arguments, got %d", name, min, n)
	case n < min:
		return typeErr("%s expected at least %d argument%s, got %d", name, min, plural(min), n)
	}
	return typeErr("%s expected at most %d argument%s, got %d", name, max, plural(max), n)
}

func callMethod(t *txn, recv Value, name string, args []Value) (Value, error) {
	switch r := recv.(type) {
	case *List:
		return listMethod(t, r, name, args)
	case Str:
		return strMethod(r, name, args)
	}
	return nil, attrErr(recv, name)
}

func listMethod(t *txn, l *List, name string, args []Value) (Value, error) {
	switch name {
	case "append":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		elems := make([]Value, 0, len(l.Elems)+1)
		elems = append(elems, l.Elems...)
		t.setElems(l, append(elems, args[0]))
		return None, nil

	case "extend":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		it, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		elems := make([]Value, 0, len(l.Elems)+len(it.Items))
		elems = append(elems, l.Elems...)
		t.setElems(l, append(elems, it.Items...))
		return None, nil

	case "insert":
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		i, err := toIndex(args[0], "list")
		if err != nil {
			return nil, err
		}
		n := len(l.Elems)
		if i < 0 {
			i = max(i+n, 0)
		}
		i = min(i, n)
		t.setElems(l, slices.Insert(slices.Clone(l.Elems), i, args[1]))
		return None, nil

	case "pop":
		if err := arity(name, args, 0, 1); err != nil {
			return nil, err
		}
		if len(l.Elems) == 0 {
			return nil, errors.New(errors.IndexError, "pop from empty list", 0, 0)
		}
		i := len(l.Elems) - 1
		if len(args) == 1 {
			idx, err := toIndex(args[0], "list")
			if err != nil {
				return nil, err
			}
			var ok bool
			if i, ok = normalize(idx, len(l.Elems)); !ok {
				return nil, errors.New(errors.IndexError, "pop index out of range", 0, 0)
			}
		}
		v := l.Elems[i]
		t.setElems(l, slices.Delete(slices.Clone(l.Elems), i, i+1))
		return v, nil

	case "remove":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		i := indexOf(l.Elems, args[0])
		if i < 0 {
			return nil, errors.New(errors.ValueError, "list.remove(x): x not in list", 0, 0)
		}
		t.setElems(l, slices.Delete(slices.Clone(l.Elems), i, i+1))
		return None, nil

	case "index":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		i := indexOf(l.Elems, args[0])
		if i < 0 {
			return nil, errors.Newf(errors.ValueError, 0, 0, "%s is not in list", args[0].Repr())
		}
		return Int(int64(i)), nil

	case "count":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		n := 0
		for _, e := range l.Elems {
			if Equal(e, args[0]) {
				n++
			}
		}
		return Int(int64(n)), nil

	case "contains":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return Bool(indexOf(l.Elems, args[0]) >= 0), nil

	case "sort":
		if err := arity(name, args, 0, 0); err != nil {
			return nil, err
		}
		elems, err := sorted(l.Elems)
		if err != nil {
			return nil, err
		}
		t.setElems(l, elems)
		return None, nil

	case "reverse":
		if err := arity(name, args, 0, 0); err != nil {
			return nil, err
		}
		elems := slices.Clone(l.Elems)
		slices.Reverse(elems)
		t.setElems(l, elems)
		return None, nil

	case "clear":
		if err := arity(name, args, 0, 0); err != nil {
			return nil, err
		}
		t.setElems(l, []Value{})
		return None, nil

	case "copy":
		if err := arity(name, args, 0, 0); err != nil {
			return nil, err
		}
		return NewList(slices.Clone(l.Elems)...), nil
	}
	return nil, attrErr(l, name)
}

func indexOf(elems []Value, v Value) int {
	return slices.IndexFunc(elems, func(e Value) bool { return Equal(e, v) })
}

// sorted returns a stably sorted copy; elements must be mutually ordered.
func sorted(elems []Value) ([]Value, error) {
	out := slices.Clone(elems)
	var cmpErr error
	slices.SortStableFunc(out, func(a, b Value) int {
		if cmpErr != nil {
			return 0
		}
		c, err := compare("<", a, b)
		if err != nil {
			cmpErr = err
		}
		return c
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	return out, nil
}

func strArg(method string, v Value) (string, error) {
	s, ok := v.(Str)
	if !ok {
		return "", typeErr("%s() argument must be str, not %s", method, v.TypeName())
	}
	return string(s), nil
}

func strMethod(s Str, name string, args []Value) (Value, error) {
	str := string(s)
	switch name {
	case "upper", "lower":
		if err := arity(name, args, 0, 0); err != nil {
			return nil, err
		}
		if name == "upper" {
			return Str(strings.ToUpper(str)), nil
		}
		return Str(strings.ToLower(str)), nil

	case "strip":
		if err := arity(name, args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return Str(strings.TrimSpace(str)), nil
		}
		chars, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		return Str(strings.Trim(str, chars)), nil

	case "split":
		if err := arity(name, args, 0, 1); err != nil {
			return nil, err
		}
		var parts []string
		if len(args) == 0 {
			parts = strings.Fields(str)
		} else {
			sep, err := strArg(name, args[0])
			if err != nil {
				return nil, err
			}
			if sep == "" {
				return nil, errors.New(errors.ValueError, "empty separator", 0, 0)
			}
			parts = strings.Split(str, sep)
		}
		elems := make([]Value, len(parts))
		for i, p := range parts {
			elems[i] = Str(p)
		}
		return NewList(elems...), nil

	case "join":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		it, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(it.Items))
		for i, v := range it.Items {
			p, ok := v.(Str)
			if !ok {
				return nil, typeErr("sequence item %d: expected str instance, %s found", i, v.TypeName())
			}
			parts[i] = string(p)
		}
		return Str(strings.Join(parts, str)), nil

	case "replace":
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		old, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		repl, err := strArg(name, args[1])
		if err != nil {
			return nil, err
		}
		return Str(strings.ReplaceAll(str, old, repl)), nil

	case "find", "index":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		sub, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		i := strings.Index(str, sub)
		if i < 0 {
			if name == "index" {
				return nil, errors.New(errors.ValueError, "substring not found", 0, 0)
			}
			return Int(-1), nil
		}
		return Int(int64(len([]rune(str[:i])))), nil

	case "startswith", "endswith":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		fix, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		if name == "startswith" {
			return Bool(strings.HasPrefix(str, fix)), nil
		}
		return Bool(strings.HasSuffix(str, fix)), nil

	case "count":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		sub, err := strArg(name, args[0])
		if err != nil {
			return nil, err
		}
		if sub == "" {
			return Int(int64(s.Len() + 1)), nil
		}
		return Int(int64(strings.Count(str, sub))), nil
	}
	return nil, attrErr(s, name)
}
