package rex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rimplang/gorimp/internal/rex"
)

func Test_Matches(t *testing.T) {
	digits := rex.Plus{R: rex.Ranges{rex.Span('0', '9')}}
	word := rex.Word("while")
	opt := rex.Seq{R1: rex.Word("ab"), R2: rex.Opt{R: rex.Char('c')}}

	for _, tc := range []struct {
		name  string
		re    rex.Re
		input string
		want  bool
	}{
		{"digits yes", digits, "0123", true},
		{"digits empty", digits, "", false},
		{"digits no", digits, "12a", false},
		{"word yes", word, "while", true},
		{"word prefix only", word, "whil", false},
		{"word overlong", word, "whilex", false},
		{"opt absent", opt, "ab", true},
		{"opt present", opt, "abc", true},
		{"star empty", rex.Star{R: rex.Char('a')}, "", true},
		{"star many", rex.Star{R: rex.Char('a')}, "aaaa", true},
		{"alt left", rex.Alt{R1: rex.Word("ab"), R2: rex.Word("cd")}, "ab", true},
		{"alt right", rex.Alt{R1: rex.Word("ab"), R2: rex.Word("cd")}, "cd", true},
		{"zero", rex.Zero{}, "", false},
		{"one", rex.One{}, "", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rex.Matches(tc.re, tc.input))
		})
	}
}

func Test_MatchesPrefix(t *testing.T) {
	digits := rex.Plus{R: rex.Ranges{rex.Span('0', '9')}}

	matched, remaining, found := rex.MatchesPrefix(digits, "123abc")
	require.True(t, found)
	assert.Equal(t, "123", matched, "prefix matching is greedy")
	assert.Equal(t, "abc", remaining)

	_, _, found = rex.MatchesPrefix(digits, "abc")
	assert.False(t, found)
}

func Test_Lex_records(t *testing.T) {
	lang := rex.Plus{R: rex.AltOf(
		rex.Record{Name: "word", R: rex.Plus{R: rex.Ranges{rex.Span('a', 'z')}}},
		rex.Record{Name: "num", R: rex.Plus{R: rex.Ranges{rex.Span('0', '9')}}},
		rex.Record{Name: "ws", R: rex.Char(' ')},
	)}

	lexemes, err := rex.Lex(lang, "abc 12 de")
	require.NoError(t, err)

	var names, texts []string
	for _, lx := range lexemes {
		names = append(names, lx.Name)
		texts = append(texts, lx.Text)
	}
	assert.Equal(t, []string{"word", "ws", "num", "ws", "word"}, names)
	assert.Equal(t, []string{"abc", " ", "12", " ", "de"}, texts)
}

func Test_Lex_longestMatch(t *testing.T) {
	// keyword left of identifier: exact keyword text lexes as keyword, a
	// longer identifier sharing the prefix stays whole
	lang := rex.Plus{R: rex.AltOf(
		rex.Record{Name: "kw", R: rex.Word("do")},
		rex.Record{Name: "id", R: rex.Plus{R: rex.Ranges{rex.Span('a', 'z')}}},
		rex.Record{Name: "ws", R: rex.Char(' ')},
	)}

	lexemes, err := rex.Lex(lang, "do dot")
	require.NoError(t, err)
	require.Len(t, lexemes, 3)
	assert.Equal(t, "kw", lexemes[0].Name)
	assert.Equal(t, "id", lexemes[2].Name, "dot must lex as one identifier")
	assert.Equal(t, "dot", lexemes[2].Text)
}

func Test_Lex_locations(t *testing.T) {
	lang := rex.Plus{R: rex.AltOf(
		rex.Record{Name: "word", R: rex.Plus{R: rex.Ranges{rex.Span('a', 'z')}}},
		rex.Record{Name: "nl", R: rex.Char('\n')},
	)}

	lexemes, err := rex.Lex(lang, "ab\ncd")
	require.NoError(t, err)
	require.Len(t, lexemes, 3)
	assert.Equal(t, rex.Loc{Line: 1, Column: 0}, lexemes[0].Loc)
	assert.Equal(t, rex.Loc{Line: 2, Column: 0}, lexemes[2].Loc)
}

func Test_Lex_error(t *testing.T) {
	lang := rex.Plus{R: rex.Record{Name: "word", R: rex.Plus{R: rex.Ranges{rex.Span('a', 'z')}}}}

	_, err := rex.Lex(lang, "ab9cd")
	require.Error(t, err)
	lerr, ok := err.(rex.LexError)
	require.True(t, ok)
	assert.Equal(t, rex.Loc{Line: 1, Column: 2}, lerr.Loc)
}
