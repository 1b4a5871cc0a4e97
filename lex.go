package main

import (
	"fmt"
	"strconv"

	"github.com/rimplang/gorimp/internal/rex"
)

// The tokeniser is a single derivative regex with named record captures; the
// records ordered so keywords sit left of identifiers and win ties.

type keyword int

const (
	kwSkip keyword = iota
	kwIf
	kwThen
	kwElse
	kwWhile
	kwDo
	kwInt
	kwFloat
)

var keywordNames = map[string]keyword{
	"skip":  kwSkip,
	"if":    kwIf,
	"then":  kwThen,
	"else":  kwElse,
	"while": kwWhile,
	"do":    kwDo,
	"int":   kwInt,
	"float": kwFloat,
}

func (kw keyword) String() string {
	for name, k := range keywordNames {
		if k == kw {
			return name
		}
	}
	return fmt.Sprintf("keyword(%d)", int(kw))
}

type oper int

const (
	opAdd oper = iota
	opMinus
	opMultiply
	opDivide
	opExponent
	opEqual
	opAssign
	opLessThan
	opGreaterThan
	opNotEqual
	opAnd
	opOr
	opNot
)

var operNames = map[string]oper{
	"+":  opAdd,
	"-":  opMinus,
	"*":  opMultiply,
	"/":  opDivide,
	"^":  opExponent,
	"==": opEqual,
	"=":  opAssign,
	"<":  opLessThan,
	">":  opGreaterThan,
	"!=": opNotEqual,
	"&&": opAnd,
	"||": opOr,
	"!":  opNot,
}

func (op oper) String() string {
	for name, o := range operNames {
		if o == op {
			return name
		}
	}
	return fmt.Sprintf("oper(%d)", int(op))
}

type bracket int

const (
	brLeftParen bracket = iota
	brRightParen
	brLeftBrace
	brRightBrace
)

var bracketNames = map[string]bracket{
	"(": brLeftParen,
	")": brRightParen,
	"{": brLeftBrace,
	"}": brRightBrace,
}

type tokKind int

const (
	tokKeyword tokKind = iota
	tokIdent
	tokOper
	tokInt
	tokFloat
	tokBracket
	tokSemi
)

type token struct {
	kind tokKind
	text string

	kw   keyword
	op   oper
	br   bracket
	ival int32
	fval float32

	loc rex.Loc
}

func (t token) String() string {
	return fmt.Sprintf("%v %q", t.loc, t.text)
}

// tokens is a peekable token source for the parser.
type tokens struct {
	toks []token
	pos  int
}

func (ts *tokens) next() (token, bool) {
	if ts.pos >= len(ts.toks) {
		return token{}, false
	}
	t := ts.toks[ts.pos]
	ts.pos++
	return t, true
}

func (ts *tokens) peek() (token, bool) {
	if ts.pos >= len(ts.toks) {
		return token{}, false
	}
	return ts.toks[ts.pos], true
}

var rimpRe rex.Re

func init() {
	letter := rex.Ranges{rex.Span('a', 'z'), rex.Span('A', 'Z')}
	digit := rex.Ranges{rex.Span('0', '9')}
	alnum := rex.Ranges{rex.Span('a', 'z'), rex.Span('A', 'Z'), rex.Span('0', '9')}

	// 0 | [1-9][0-9]* with an optional fraction; the fraction is what makes
	// a number lex as a float
	integral := rex.AltOf(
		rex.Char('0'),
		rex.Seq{
			R1: rex.Ranges{rex.Span('1', '9')},
			R2: rex.Star{R: digit},
		},
	)
	number := rex.Seq{
		R1: integral,
		R2: rex.Opt{R: rex.Seq{R1: rex.Char('.'), R2: rex.Plus{R: digit}}},
	}

	keywordRe := rex.AltOf(
		rex.Word("skip"), rex.Word("if"), rex.Word("then"), rex.Word("else"),
		rex.Word("while"), rex.Word("do"), rex.Word("int"), rex.Word("float"),
	)

	identifier := rex.Seq{R1: letter, R2: rex.Star{R: alnum}}

	operator := rex.AltOf(
		rex.Ranges{
			rex.Ch('+'), rex.Ch('-'), rex.Ch('*'), rex.Ch('/'), rex.Ch('^'),
			rex.Ch('='), rex.Ch('<'), rex.Ch('>'),
		},
		rex.Word("!="), rex.Word("=="), rex.Word("&&"), rex.Word("||"),
		rex.Char('!'),
	)

	printable := rex.Ranges{rex.Span(' ', '~'), rex.Ch('\t')}
	comment := rex.AltOf(
		rex.SeqOf(rex.Word("//"), rex.Star{R: printable}, rex.Char('\n')),
		rex.SeqOf(
			rex.Word("/*"),
			rex.Star{R: rex.Ranges{rex.Span(' ', '~'), rex.Ch('\t'), rex.Ch('\n')}},
			rex.Word("*/"),
		),
	)

	whitespace := rex.Ranges{rex.Ch(' '), rex.Ch('\n'), rex.Ch('\t'), rex.Ch('\r')}

	brackets := rex.Ranges{rex.Ch('('), rex.Ch(')'), rex.Ch('{'), rex.Ch('}')}

	rimpRe = rex.Plus{R: rex.AltOf(
		rex.Record{Name: "keyword", R: keywordRe},
		rex.Record{Name: "operator", R: operator},
		rex.Record{Name: "bracket", R: brackets},
		rex.Record{Name: "semicolon", R: rex.Char(';')},
		rex.Record{Name: "whitespace", R: whitespace},
		rex.Record{Name: "number", R: number},
		rex.Record{Name: "comment", R: comment},
		rex.Record{Name: "identifier", R: identifier},
	)}
}

// tokenise lexes src into parser tokens, dropping whitespace and comments.
func tokenise(src string) (*tokens, error) {
	lexemes, err := rex.Lex(rimpRe, src)
	if err != nil {
		return nil, err
	}

	var ts tokens
	for _, lx := range lexemes {
		tok, keep, err := makeToken(lx)
		if err != nil {
			return nil, err
		}
		if keep {
			ts.toks = append(ts.toks, tok)
		}
	}
	return &ts, nil
}

func makeToken(lx rex.Lexeme) (tok token, keep bool, err error) {
	tok.text = lx.Text
	tok.loc = lx.Loc
	keep = true

	switch lx.Name {
	case "whitespace", "comment":
		keep = false
	case "keyword":
		tok.kind = tokKeyword
		tok.kw = keywordNames[lx.Text]
	case "identifier":
		tok.kind = tokIdent
	case "operator":
		tok.kind = tokOper
		tok.op = operNames[lx.Text]
	case "bracket":
		tok.kind = tokBracket
		tok.br = bracketNames[lx.Text]
	case "semicolon":
		tok.kind = tokSemi
	case "number":
		if hasDot(lx.Text) {
			f, perr := strconv.ParseFloat(lx.Text, 32)
			if perr != nil {
				return tok, false, lexError(lx, "invalid float literal")
			}
			tok.kind = tokFloat
			tok.fval = float32(f)
		} else {
			n, perr := strconv.ParseInt(lx.Text, 10, 32)
			if perr != nil {
				return tok, false, lexError(lx, "invalid 32 bit number")
			}
			tok.kind = tokInt
			tok.ival = int32(n)
		}
	default:
		return tok, false, lexError(lx, "unknown token record")
	}
	return tok, keep, nil
}

func hasDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func lexError(lx rex.Lexeme, msg string) error {
	return rex.LexError{Msg: fmt.Sprintf("%v %q", msg, lx.Text), Loc: lx.Loc}
}
