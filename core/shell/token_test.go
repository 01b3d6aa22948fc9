package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize(`cat < in "a b" 'c' | wc 2> /dev/null > out`)

	assert.True(t, tokens.Valid)
	assert.Equal(t, []Token{
		{Type: Word, Text: "cat"},
		{Type: InputRedirect},
		{Type: Word, Text: "in"},
		{Type: Word, Text: "a b"},
		{Type: Word, Text: "c"},
		{Type: Pipe},
		{Type: Word, Text: "wc"},
		{Type: ErrorRedirect},
		{Type: Word, Text: "/dev/null"},
		{Type: OutputRedirect},
		{Type: Word, Text: "out"},
	}, tokens.List)
}

func TestTokenizeInvalid(t *testing.T) {
	for _, line := range []string{`echo "abc`, `echo 'abc`, `echo abc\`} {
		tokens := Tokenize(line)
		assert.False(t, tokens.Valid, line)
		assert.Empty(t, tokens.List, line)
	}
}

func TestTokenizeOperatorsNeedSpaces(t *testing.T) {
	tokens := Tokenize("ls|wc")
	assert.Equal(t, []Token{{Type: Word, Text: "ls|wc"}}, tokens.List)
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, "WORD ls", Token{Type: Word, Text: "ls"}.String())
	assert.Equal(t, "PIPE", Token{Type: Pipe}.String())
	assert.Equal(t, "2>", ErrorRedirect.Symbol())
	assert.Equal(t, "", Word.Symbol())
}
