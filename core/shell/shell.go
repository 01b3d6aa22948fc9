// Package shell reads command lines and runs them as pipelines.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/asikorin/kara/core/pipeline"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Shell feeds lines from a terminal, a script or a single command string to
// a pipeline session.
type Shell struct {
	Session *pipeline.Session

	// In is read by Run.
	In io.Reader
	// Out receives the prompt.
	Out io.Writer
	// Diag receives syntax errors.
	Diag io.Writer
	// Interactive enables the prompt.
	Interactive bool
	// Fs is where scripts are read from.
	Fs afero.Fs

	prompt *Prompt
	log    *zap.Logger
}

// New creates a non-interactive shell on the process's standard streams.
func New(session *pipeline.Session) *Shell {
	return &Shell{
		Session: session,
		In:      os.Stdin,
		Out:     os.Stdout,
		Diag:    os.Stdout,
		Fs:      afero.NewOsFs(),
		prompt:  NewPrompt(),
		log:     session.Logger(),
	}
}

// RunLine tokenizes, parses and executes one line.
func (s *Shell) RunLine(line string) pipeline.Result {
	p, err := Parse(Tokenize(line))
	if err != nil {
		s.log.Debug("rejected line", zap.String("line", line), zap.Error(err))
		pipeline.Reportf(s.Diag, "%v", err)
		return pipeline.Result{Err: err}
	}

	if p.Empty() {
		return pipeline.Result{}
	}

	s.log.Debug("executing", zap.Stringer("pipeline", p))
	return s.Session.Execute(p)
}

// Run executes lines from In until it is exhausted.
func (s *Shell) Run() error {
	scanner := newLineScanner(s.In)

	for {
		if s.Interactive {
			prompt, err := s.prompt.Render()
			if err != nil {
				return fmt.Errorf("render prompt: %w", err)
			}
			fmt.Fprint(s.Out, prompt)
		}

		if !scanner.Scan() {
			if s.Interactive {
				fmt.Fprintln(s.Out)
			}
			return scanner.Err()
		}

		s.RunLine(scanner.Text())
	}
}

// RunScript executes every line of each script in turn. It stops at the
// first script that cannot be read.
func (s *Shell) RunScript(paths ...string) error {
	for _, path := range paths {
		if err := s.runScript(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) runScript(path string) error {
	fd, err := s.Fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer fd.Close()

	s.log.Debug("running script", zap.String("path", path))

	scanner := newLineScanner(fd)
	for scanner.Scan() {
		s.RunLine(scanner.Text())
	}
	return scanner.Err()
}

// maxLineLength bounds the length of a single command line.
const maxLineLength = 1 << 20

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	return scanner
}
