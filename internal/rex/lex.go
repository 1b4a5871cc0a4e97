package rex

import "fmt"

// Loc is a 1-based line and 0-based column position in lexed input.
type Loc struct {
	Line   int
	Column int
}

func (l Loc) String() string { return fmt.Sprintf("[%d, %d]", l.Line, l.Column) }

// LexError reports the first position at which the input fell outside the
// token language.
type LexError struct {
	Msg string
	Loc Loc
}

func (e LexError) Error() string { return fmt.Sprintf("%v %v", e.Loc, e.Msg) }

// Lexeme is one captured token: the Record name it matched under, its text,
// and where it started.
type Lexeme struct {
	Name string
	Text string
	Loc  Loc
}

// Lex matches input against r and returns the captured lexemes in order.
// The whole input must belong to the language of r; the first offending
// character otherwise yields a LexError with its position.
func Lex(r Re, input string) ([]Lexeme, error) {
	v, err := lexValue(r, input, Loc{Line: 1})
	if err != nil {
		return nil, err
	}

	loc := Loc{Line: 1}
	env := Environment(v)
	out := make([]Lexeme, 0, len(env))
	for _, pair := range env {
		out = append(out, Lexeme{Name: pair[0], Text: pair[1], Loc: loc})
		loc = advance(loc, pair[1])
	}
	return out, nil
}

func lexValue(r Re, input string, loc Loc) (Value, error) {
	if input == "" {
		if Nullable(r) {
			return mkeps(r), nil
		}
		return nil, LexError{Msg: "unexpected end of input", Loc: loc}
	}

	runes := []rune(input)
	c := runes[0]
	remaining := string(runes[1:])

	d, rect := simplifyRect(Deriv(r, c))
	if isZero(d) {
		return nil, LexError{Msg: fmt.Sprintf("unexpected character %q", c), Loc: loc}
	}

	v, err := lexValue(d, remaining, advance(loc, string(c)))
	if err != nil {
		return nil, err
	}
	return inject(r, c, rect(v)), nil
}

func advance(loc Loc, text string) Loc {
	for _, c := range text {
		if c == '\n' {
			loc.Line++
			loc.Column = 0
		} else {
			loc.Column++
		}
	}
	return loc
}
