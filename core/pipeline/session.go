package pipeline

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRegistryCapacity = 16

// Session holds the process-wide state of one shell: the registry of live
// children, the start-order synchronizer, and where stages read and write.
//
// Only one pipeline runs at a time; Execute serializes callers.
type Session struct {
	// ID identifies the session in logs.
	ID string

	mu       sync.Mutex
	registry *Registry
	sync     *Synchronizer

	policy     RedirectPolicy
	executable string
	capacity   int

	stdin  *os.File
	stdout *os.File
	stderr *os.File
	diag   io.Writer

	log  *zap.Logger
	exit func(code int)

	// start launches a stage runner and wait reaps one.
	start func(cmd *exec.Cmd) error
	wait  func(cmd *exec.Cmd) (StageStatus, error)
}

// Option configures a Session.
type Option func(*Session)

// WithStdio sets the files the outer ends of a pipeline are connected to.
func WithStdio(stdin, stdout, stderr *os.File) Option {
	return func(s *Session) {
		s.stdin = stdin
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithDiagnostics sets where shell diagnostics are printed.
func WithDiagnostics(w io.Writer) Option {
	return func(s *Session) {
		s.diag = w
	}
}

// WithLogger sets the debug logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithRedirectPolicy sets how output redirection files are opened.
func WithRedirectPolicy(policy RedirectPolicy) Option {
	return func(s *Session) {
		s.policy = policy
	}
}

// WithRegistryCapacity sets the initial capacity of the process registry.
func WithRegistryCapacity(capacity int) Option {
	return func(s *Session) {
		s.capacity = capacity
	}
}

// WithExecutable sets the binary re-executed as the stage runner. It must
// dispatch its StageCommand argument to RunStage.
func WithExecutable(path string) Option {
	return func(s *Session) {
		s.executable = path
	}
}

// WithExitFunc replaces the function the exit builtin calls.
func WithExitFunc(exit func(code int)) Option {
	return func(s *Session) {
		s.exit = exit
	}
}

// NewSession creates a session for the current shell process.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		ID:       uuid.NewString(),
		policy:   PolicyTruncate,
		capacity: defaultRegistryCapacity,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		diag:     os.Stdout,
		log:      zap.NewNop(),
		exit:     os.Exit,
		start:    (*exec.Cmd).Start,
		wait:     waitStage,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.policy.Validate(); err != nil {
		return nil, err
	}

	if s.executable == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, err
		}
		s.executable = self
	}

	s.sync = NewSynchronizer(SyncName(os.Getpid()))
	s.log = s.log.With(zap.String("session", s.ID), zap.String("sync", s.sync.Name()))
	s.registry = NewRegistry(s.capacity, s.log)

	return s, nil
}

// Registry returns the registry of live children.
func (s *Session) Registry() *Registry {
	return s.registry
}

// SignalAll forwards sig to every live child of the session.
func (s *Session) SignalAll(sig syscall.Signal) error {
	return s.registry.SignalAll(sig)
}

// Logger returns the session's debug logger.
func (s *Session) Logger() *zap.Logger {
	return s.log
}

// clear terminates leftover children and releases the synchronizer.
func (s *Session) clear() {
	if err := s.registry.Clear(); err != nil {
		s.report("%v", err)
	}
	s.sync.Destroy()
}

// Close releases everything the session holds.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear()
	return s.log.Sync()
}

func (s *Session) report(format string, args ...interface{}) {
	Reportf(s.diag, format, args...)
}
