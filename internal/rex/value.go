package rex

import "fmt"

// Value is a lexical value: a parse of some string against an Re. Values are
// rebuilt by injection as derivatives are unwound, and carry Record tags so
// that the environment of captured lexemes can be read off at the end.
type Value interface{ value() }

type (
	// EmptyVal is the parse of "" against One.
	EmptyVal struct{}
	// CharVal is the parse of a single rune against Char or Ranges.
	CharVal rune
	// SeqVal pairs the parses of the two halves of a Seq.
	SeqVal struct{ V1, V2 Value }
	// LeftVal marks a parse through the left branch of an Alt.
	LeftVal struct{ V Value }
	// RightVal marks a parse through the right branch of an Alt.
	RightVal struct{ V Value }
	// StarsVal holds the iteration parses of Star, Plus or Opt.
	StarsVal []Value
	// RecordVal tags a parse with a record name.
	RecordVal struct {
		Name string
		V    Value
	}
)

func (EmptyVal) value()  {}
func (CharVal) value()   {}
func (SeqVal) value()    {}
func (LeftVal) value()   {}
func (RightVal) value()  {}
func (StarsVal) value()  {}
func (RecordVal) value() {}

// Flatten yields the matched text of a value.
func Flatten(v Value) string {
	switch v := v.(type) {
	case EmptyVal:
		return ""
	case CharVal:
		return string(rune(v))
	case SeqVal:
		return Flatten(v.V1) + Flatten(v.V2)
	case LeftVal:
		return Flatten(v.V)
	case RightVal:
		return Flatten(v.V)
	case StarsVal:
		var s string
		for _, vv := range v {
			s += Flatten(vv)
		}
		return s
	case RecordVal:
		return Flatten(v.V)
	}
	panic(fmt.Sprintf("rex: unknown Value %T", v))
}

// Environment collects (record name, lexeme) pairs in match order.
func Environment(v Value) [][2]string {
	switch v := v.(type) {
	case EmptyVal, CharVal:
		return nil
	case SeqVal:
		return append(Environment(v.V1), Environment(v.V2)...)
	case LeftVal:
		return Environment(v.V)
	case RightVal:
		return Environment(v.V)
	case StarsVal:
		var env [][2]string
		for _, vv := range v {
			env = append(env, Environment(vv)...)
		}
		return env
	case RecordVal:
		return append(Environment(v.V), [2]string{v.Name, Flatten(v.V)})
	}
	panic(fmt.Sprintf("rex: unknown Value %T", v))
}

// mkeps builds the parse of the empty string against a nullable Re,
// preferring the left branch of alternations.
func mkeps(r Re) Value {
	switch r := r.(type) {
	case One:
		return EmptyVal{}
	case Alt:
		if Nullable(r.R1) {
			return LeftVal{V: mkeps(r.R1)}
		}
		return RightVal{V: mkeps(r.R2)}
	case Seq:
		return SeqVal{V1: mkeps(r.R1), V2: mkeps(r.R2)}
	case Star:
		return StarsVal(nil)
	case Plus:
		return StarsVal{mkeps(r.R)}
	case Opt:
		return StarsVal(nil)
	case Record:
		return RecordVal{Name: r.Name, V: mkeps(r.R)}
	}
	panic(fmt.Sprintf("rex: mkeps on non-nullable Re %T", r))
}

// inject pushes the consumed rune c back into a value parsed against
// Deriv(r, c), yielding a value parsed against r itself.
func inject(r Re, c rune, v Value) Value {
	switch r := r.(type) {
	case Star:
		if sv, ok := v.(SeqVal); ok {
			if stars, ok := sv.V2.(StarsVal); ok {
				return append(StarsVal{inject(r.R, c, sv.V1)}, stars...)
			}
		}
	case Plus:
		if sv, ok := v.(SeqVal); ok {
			if stars, ok := sv.V2.(StarsVal); ok {
				return append(StarsVal{inject(r.R, c, sv.V1)}, stars...)
			}
		}
	case Seq:
		switch v := v.(type) {
		case LeftVal:
			if sv, ok := v.V.(SeqVal); ok {
				return SeqVal{V1: inject(r.R1, c, sv.V1), V2: sv.V2}
			}
		case SeqVal:
			return SeqVal{V1: inject(r.R1, c, v.V1), V2: v.V2}
		case RightVal:
			return SeqVal{V1: mkeps(r.R1), V2: inject(r.R2, c, v.V)}
		}
	case Alt:
		switch v := v.(type) {
		case LeftVal:
			return LeftVal{V: inject(r.R1, c, v.V)}
		case RightVal:
			return RightVal{V: inject(r.R2, c, v.V)}
		}
	case Char:
		if _, ok := v.(EmptyVal); ok {
			return CharVal(c)
		}
	case Ranges:
		if _, ok := v.(EmptyVal); ok {
			return CharVal(c)
		}
	case Opt:
		inner := inject(r.R, c, v)
		if _, ok := inner.(EmptyVal); ok {
			return StarsVal(nil)
		}
		return StarsVal{inner}
	case Record:
		return RecordVal{Name: r.Name, V: inject(r.R, c, v)}
	}
	panic(fmt.Sprintf("rex: inject mismatch, Re %T against Value %T", r, v))
}

// rectifier repairs a lexical value parsed against a simplified Re so that
// it parses against the unsimplified original.
type rectifier func(Value) Value

func rectId(v Value) Value { return v }

// simplifyRect simplifies r while building the rectifier that undoes the
// simplification at the value level.
func simplifyRect(r Re) (Re, rectifier) {
	switch r := r.(type) {
	case Alt:
		r1s, f1 := simplifyRect(r.R1)
		r2s, f2 := simplifyRect(r.R2)
		switch {
		case isZero(r1s):
			return r2s, func(v Value) Value { return RightVal{V: f2(v)} }
		case isZero(r2s):
			return r1s, func(v Value) Value { return LeftVal{V: f1(v)} }
		case Equal(r1s, r2s):
			return r1s, func(v Value) Value { return LeftVal{V: f1(v)} }
		}
		return Alt{R1: r1s, R2: r2s}, func(v Value) Value {
			switch v := v.(type) {
			case LeftVal:
				return LeftVal{V: f1(v.V)}
			case RightVal:
				return RightVal{V: f2(v.V)}
			}
			panic(fmt.Sprintf("rex: rectify Alt against %T", v))
		}
	case Seq:
		r1s, f1 := simplifyRect(r.R1)
		r2s, f2 := simplifyRect(r.R2)
		switch {
		case isZero(r1s) || isZero(r2s):
			return Zero{}, func(Value) Value {
				panic("rex: rectify through Zero")
			}
		case isOne(r1s):
			return r2s, func(v Value) Value {
				return SeqVal{V1: f1(EmptyVal{}), V2: f2(v)}
			}
		case isOne(r2s):
			return r1s, func(v Value) Value {
				return SeqVal{V1: f1(v), V2: f2(EmptyVal{})}
			}
		}
		return Seq{R1: r1s, R2: r2s}, func(v Value) Value {
			if sv, ok := v.(SeqVal); ok {
				return SeqVal{V1: f1(sv.V1), V2: f2(sv.V2)}
			}
			panic(fmt.Sprintf("rex: rectify Seq against %T", v))
		}
	}
	return r, rectId
}
