package shell

import (
	"errors"
	"fmt"

	"github.com/asikorin/kara/core/pipeline"
)

var (
	// ErrInvalidTokens is returned for a line that could not be tokenized.
	ErrInvalidTokens = errors.New("syntax error: unexpected end of file")

	// ErrMissingRedirectTarget is returned when a redirection has no file.
	ErrMissingRedirectTarget = errors.New("syntax error: missing redirection target")

	// ErrEmptyCommand is returned when a pipe is not followed by a command.
	ErrEmptyCommand = errors.New("syntax error: empty command after pipe")
)

var redirectStreams = map[TokenType]pipeline.Stream{
	InputRedirect:  pipeline.Stdin,
	OutputRedirect: pipeline.Stdout,
	ErrorRedirect:  pipeline.Stderr,
}

// Parse builds a pipeline from a tokenized line. A blank line gives the empty
// pipeline and no error. On any error the empty pipeline is returned.
func Parse(tokens Tokens) (pipeline.Pipeline, error) {
	if !tokens.Valid {
		return nil, ErrInvalidTokens
	}

	list := tokens.List
	if len(list) == 0 {
		return nil, nil
	}

	var (
		p     pipeline.Pipeline
		stage *pipeline.Stage
	)

	for i := 0; i < len(list); i++ {
		tok := list[i]

		switch {
		case stage == nil:
			if tok.Type != Word {
				if len(p) > 0 {
					return nil, ErrEmptyCommand
				}
				return nil, unexpected(tok)
			}
			stage = pipeline.NewStage(tok.Text)
			p = append(p, stage)

		case tok.Type == Word:
			stage.AddArg(tok.Text)

		case tok.Type == Pipe:
			if i == len(list)-1 {
				return nil, ErrEmptyCommand
			}
			stage = nil

		default:
			i++
			if i == len(list) || list[i].Type != Word {
				return nil, ErrMissingRedirectTarget
			}
			stage.SetRedirect(redirectStreams[tok.Type], list[i].Text)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func unexpected(tok Token) error {
	return fmt.Errorf("syntax error near unexpected token `%s'", tok.Type.Symbol())
}
