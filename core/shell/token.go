package shell

import (
	"fmt"

	"github.com/anmitsu/go-shlex"
)

// TokenType classifies a token of a command line.
type TokenType int

const (
	Word TokenType = iota
	Pipe
	InputRedirect
	OutputRedirect
	ErrorRedirect
)

var operators = map[string]TokenType{
	"|":  Pipe,
	"<":  InputRedirect,
	">":  OutputRedirect,
	"2>": ErrorRedirect,
}

func (t TokenType) String() string {
	switch t {
	case Word:
		return "WORD"
	case Pipe:
		return "PIPE"
	case InputRedirect:
		return "INPUT_REDIRECTION"
	case OutputRedirect:
		return "OUTPUT_REDIRECTION"
	case ErrorRedirect:
		return "ERROR_REDIRECTION"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Symbol returns the operator as written on the command line.
func (t TokenType) Symbol() string {
	for symbol, op := range operators {
		if op == t {
			return symbol
		}
	}
	return ""
}

// Token is a word or an operator. Text is only set for words.
type Token struct {
	Type TokenType
	Text string
}

func (t Token) String() string {
	if t.Type == Word {
		return fmt.Sprintf("%s %s", t.Type, t.Text)
	}
	return t.Type.String()
}

// Tokens is the result of splitting one line. A line that breaks the quoting
// rules gives Tokens with Valid unset, which must not be parsed.
type Tokens struct {
	Valid bool
	List  []Token
}

// Tokenize splits a line on whitespace, honouring single and double quotes
// and backslash escapes. Operators must stand alone between spaces; empty
// words are dropped.
func Tokenize(line string) Tokens {
	words, err := shlex.Split(line, true)
	if err != nil {
		return Tokens{}
	}

	tokens := Tokens{Valid: true}
	for _, word := range words {
		if op, ok := operators[word]; ok {
			tokens.List = append(tokens.List, Token{Type: op})
			continue
		}
		if word != "" {
			tokens.List = append(tokens.List, Token{Type: Word, Text: word})
		}
	}
	return tokens
}
