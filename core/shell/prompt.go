package shell

import (
	"os"
	"strings"

	"github.com/fatih/color"
)

// glyph replaces the customary "$" at the end of the prompt.
const glyph = " 殻 "

// Prompt renders the interactive prompt: the working directory followed by
// the glyph, in a colour that moves one step from red to white on every
// render.
type Prompt struct {
	next color.Attribute

	getwd func() (string, error)
	home  func() string
}

// NewPrompt creates a prompt reading the process working directory.
func NewPrompt() *Prompt {
	return &Prompt{
		next:  color.FgRed,
		getwd: os.Getwd,
		home: func() string {
			return os.Getenv("HOME")
		},
	}
}

// Render returns the next prompt. It fails only if the working directory is
// unknown.
func (p *Prompt) Render() (string, error) {
	wd, err := p.getwd()
	if err != nil {
		return "", err
	}

	if home := p.home(); home != "" && strings.HasPrefix(wd, home) {
		wd = "~" + strings.TrimPrefix(wd, home)
	}

	c := color.New(p.next, color.Bold)
	p.next++
	if p.next > color.FgWhite {
		p.next = color.FgRed
	}

	return wd + c.Sprint(glyph), nil
}
