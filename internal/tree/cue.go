package tree

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// FromCUE converts a concrete CUE value.
func FromCUE(v cue.Value) (*Tree, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}
	return fromCUEValue(v, "")
}

// ParseCUE compiles CUE source and converts the resulting value.
func ParseCUE(src []byte) (*Tree, error) {
	v := cuecontext.New().CompileBytes(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile cue: %w", err)
	}
	return FromCUE(v)
}

func fromCUEValue(v cue.Value, label string) (*Tree, error) {
	switch k := v.Kind(); k {
	case cue.StructKind:
		t := New(KindObject, label, nil)
		fields, err := v.Fields()
		if err != nil {
			return nil, err
		}
		for fields.Next() {
			c, err := fromCUEValue(fields.Value(), fields.Label())
			if err != nil {
				return nil, err
			}
			t.Add(c)
		}
		return t, nil

	case cue.ListKind:
		t := New(KindArray, label, nil)
		items, err := v.List()
		if err != nil {
			return nil, err
		}
		for i := 0; items.Next(); i++ {
			c, err := fromCUEValue(items.Value(), strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			t.Add(c)
		}
		return t, nil

	case cue.NullKind:
		return New(KindNull, label, nil), nil

	case cue.BoolKind:
		b, err := v.Bool()
		return New(KindBool, label, b), err

	case cue.IntKind:
		i, err := v.Int64()
		return New(KindInt, label, i), err

	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return New(KindFloat, label, f), err

	case cue.StringKind:
		s, err := v.String()
		return New(KindString, label, s), err

	case cue.BottomKind:
		return nil, fmt.Errorf("%v: value is not concrete", v.Pos())

	default:
		return nil, fmt.Errorf("%v: unsupported cue kind %v", v.Pos(), k)
	}
}
