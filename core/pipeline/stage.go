package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Stream indexes the three standard streams of a stage.
type Stream int

const (
	Stdin Stream = iota
	Stdout
	Stderr
)

// String returns the conventional name of the stream.
func (s Stream) String() string {
	switch s {
	case Stdin:
		return "stdin"
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

// redirectSymbols holds the operator used to redirect each stream.
var redirectSymbols = [3]string{"<", ">", "2>"}

// Kind classifies a stage. A nil Kind is an unresolved stage, which is never
// executed.
type Kind interface {
	isKind()
}

// Builtin marks a stage that runs inside the shell process.
type Builtin struct {
	Op BuiltinOp
}

// External marks a stage that runs as its own process.
type External struct {
	// Program is looked up on PATH by the stage process.
	Program string
}

func (Builtin) isKind()  {}
func (External) isKind() {}

// Stage is one command of a pipeline.
type Stage struct {
	// Name is the program or builtin name.
	Name string

	// Args holds the command line including Name as Args[0].
	Args []string

	// Redirect holds the file each standard stream is redirected to, indexed by
	// Stream. An empty path leaves the stream alone.
	Redirect [3]string

	// Kind is decided once by NewStage and never changes.
	Kind Kind
}

// NewStage creates a stage for the named command, classifying it against the
// builtin table.
func NewStage(name string) *Stage {
	stage := &Stage{
		Name: name,
		Args: []string{name},
	}

	if op, ok := LookupBuiltin(name); ok {
		stage.Kind = Builtin{Op: op}
	} else {
		stage.Kind = External{Program: name}
	}

	return stage
}

// AddArg appends an argument to the stage.
func (s *Stage) AddArg(arg string) {
	s.Args = append(s.Args, arg)
}

// SetRedirect redirects a standard stream to the file at path. A later call
// for the same stream wins.
func (s *Stage) SetRedirect(stream Stream, path string) {
	s.Redirect[stream] = path
}

// ArgCount returns the number of arguments including the command name.
func (s *Stage) ArgCount() int {
	return len(s.Args)
}

// IsBuiltin reports whether the stage runs inside the shell.
func (s *Stage) IsBuiltin() bool {
	_, ok := s.Kind.(Builtin)
	return ok
}

// String renders the stage in a stable single line form.
func (s *Stage) String() string {
	var b strings.Builder

	switch kind := s.Kind.(type) {
	case Builtin:
		fmt.Fprintf(&b, "builtin(%s)", kind.Op)
	case External:
		b.WriteString("external")
	default:
		b.WriteString("unresolved")
	}

	fmt.Fprintf(&b, " %q", s.Args)
	for i, path := range s.Redirect {
		if path != "" {
			fmt.Fprintf(&b, " %s%q", redirectSymbols[i], path)
		}
	}

	return b.String()
}

// Pipeline is an ordered chain of stages, each stage's stdout feeding the
// next stage's stdin. The empty pipeline means there is nothing to run.
type Pipeline []*Stage

// Empty reports whether there is nothing to execute.
func (p Pipeline) Empty() bool {
	return len(p) == 0
}

// Validate checks that a builtin only ever appears as the sole stage.
func (p Pipeline) Validate() error {
	if len(p) < 2 {
		return nil
	}

	for _, stage := range p {
		if stage.IsBuiltin() {
			return ErrBuiltinInPipeline
		}
	}
	return nil
}

// String renders one stage per line.
func (p Pipeline) String() string {
	var b strings.Builder
	for _, stage := range p {
		b.WriteString(stage.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Sentinel errors for the pipeline package.
var (
	// ErrBuiltinInPipeline is returned when a builtin is combined with pipes.
	ErrBuiltinInPipeline = errors.New("built-in commands are not allowed to use with pipes")

	// ErrNoStages is returned when an operation needs at least one stage.
	ErrNoStages = errors.New("pipeline has no stages")
)
