// Package settings – typed values and coercion from stored strings.
package settings

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Kind is the dynamic type of a Value.
type Kind int

// Value kinds. KindNull is the zero Kind.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
)

// String names the kind the way chat replies and logs show it.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a coerced setting value. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a finite float.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps a string as-is; use Coerce to parse one.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind reports the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload and whether v is a boolean.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Raw renders v as a stored string. Coerce(v.Raw()) yields v again for every
// value Coerce can produce.
func (v Value) Raw() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindString:
		return v.s
	default:
		return "null"
	}
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.Raw() }

var words = map[string]Value{
	"true":  Bool(true),
	"false": Bool(false),
	"yes":   Bool(true),
	"no":    Bool(false),
	"null":  Null(),
}

// Coerce turns a raw stored string into a typed value. The input is trimmed,
// then matched case-insensitively against the word table, then parsed as a
// number; anything else is returned as the trimmed string. It never fails.
func Coerce(raw string) Value {
	s := strings.TrimSpace(raw)
	if v, ok := words[cases.Fold().String(s)]; ok {
		return v
	}
	if s != "" {
		if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
			return Number(n)
		}
	}
	return String(s)
}
