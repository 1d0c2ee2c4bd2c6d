package recipe

import (
	"sort"
	"strings"
)

// Value is a scalar or list variable value.
type Value struct {
	Scalar string
	List   []string
	IsList bool
}

// ScalarValue wraps a plain string.
func ScalarValue(s string) Value { return Value{Scalar: s} }

// ListValue wraps an array.
func ListValue(items ...string) Value { return Value{List: items, IsList: true} }

// String renders the value in scalar context; lists join with single spaces.
func (v Value) String() string {
	if v.IsList {
		return strings.Join(v.List, " ")
	}
	return v.Scalar
}

// Strings renders the value in list context. An empty scalar is an empty list.
func (v Value) Strings() []string {
	if v.IsList {
		return v.List
	}
	if v.Scalar == "" {
		return nil
	}
	return []string{v.Scalar}
}

// Vars maps variable names to their current values.
type Vars map[string]Value

// Get returns the scalar rendering of name.
func (vs Vars) Get(name string) (string, bool) {
	v, ok := vs[name]
	if !ok {
		return "", false
	}
	return v.String(), true
}

// Lookup returns the scalar rendering of name or def when unset.
func (vs Vars) Lookup(name, def string) string {
	if s, ok := vs.Get(name); ok {
		return s
	}
	return def
}

// List returns the list rendering of name.
func (vs Vars) List(name string) []string {
	return vs[name].Strings()
}

// Names returns the variable names in sorted order.
func (vs Vars) Names() []string {
	names := make([]string, 0, len(vs))
	for name := range vs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Interpolate renders the assigned value against vars.
func (s *Assignment) Interpolate(vars Vars) (string, error) {
	return expand(s.Value, vars)
}

// Interpolate renders every element against vars. An element made of a
// single reference to a list variable expands to all of its items; empty
// results are dropped.
func (s *ArrayAssignment) Interpolate(vars Vars) ([]string, error) {
	var out []string
	for _, elem := range s.Elements {
		if len(elem) == 1 && elem[0].Kind == Variable {
			v, ok := vars[elem[0].VarName()]
			if !ok {
				return nil, undefined(elem[0])
			}
			if v.IsList {
				out = append(out, v.List...)
				continue
			}
		}
		str, err := expand(elem, vars)
		if err != nil {
			return nil, err
		}
		if str != "" {
			out = append(out, str)
		}
	}
	return out, nil
}

func undefined(t Token) error {
	return &UndefinedVariableError{Name: t.VarName(), Line: t.Line, Col: t.Col}
}

func expand(toks []Token, vars Vars) (string, error) {
	var b strings.Builder
	for _, t := range toks {
		switch t.Kind {
		case Variable:
			v, ok := vars[t.VarName()]
			if !ok {
				return "", undefined(t)
			}
			b.WriteString(v.String())
		case Quoted:
			b.WriteString(t.Unquote())
		default:
			b.WriteString(t.Text)
		}
	}
	return b.String(), nil
}

// Evaluate replays the assignments of stmts in order. Function bodies and
// command lines are not executed.
func Evaluate(stmts []Statement) (Vars, error) {
	vars := Vars{}
	for _, st := range stmts {
		switch s := st.(type) {
		case *Assignment:
			val, err := s.Interpolate(vars)
			if err != nil {
				return nil, err
			}
			name, appendTo := strings.CutSuffix(s.Name, "+")
			prev, exists := vars[name]
			switch {
			case appendTo && exists && prev.IsList:
				vars[name] = ListValue(append(append([]string(nil), prev.List...), val)...)
			case appendTo:
				vars[name] = ScalarValue(prev.Scalar + val)
			default:
				vars[name] = ScalarValue(val)
			}
		case *ArrayAssignment:
			items, err := s.Interpolate(vars)
			if err != nil {
				return nil, err
			}
			name, appendTo := strings.CutSuffix(s.Name, "+")
			if appendTo {
				items = append(append([]string(nil), vars[name].Strings()...), items...)
			}
			vars[name] = ListValue(items...)
		}
	}
	return vars, nil
}

// ParseVars parses text in recipe syntax and evaluates its assignments.
// Configuration files share this format.
func ParseVars(src []byte) (Vars, error) {
	stmts, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Evaluate(stmts)
}

// Fields splits a single command line into words, dropping quotes. Variable
// references are kept verbatim so callers can substitute them.
func Fields(line string) ([]string, error) {
	toks, err := Tokenize([]byte(line))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, word := range splitWords(toks) {
		var b strings.Builder
		for _, t := range word {
			b.WriteString(t.Unquote())
		}
		out = append(out, b.String())
	}
	return out, nil
}
