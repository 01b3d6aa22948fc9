package pipeline

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// RelaySignals are the interactive and job control signals forwarded to the
// running pipeline. SIGSTOP cannot be caught, so it always stops the shell
// itself.
var RelaySignals = []os.Signal{
	unix.SIGINT,
	unix.SIGQUIT,
	unix.SIGTSTP,
	unix.SIGCONT,
}

// Signaller delivers a signal to a group of processes.
type Signaller interface {
	SignalAll(sig syscall.Signal) error
}

// Relay forwards signals received by the shell to its live children instead
// of letting them act on the shell.
type Relay struct {
	target Signaller
	log    *zap.Logger

	// pid is the shell's pid at install time.
	pid    int
	getpid func() int
	raise  func(sig syscall.Signal) error

	signals chan os.Signal
	done    chan struct{}
	once    sync.Once
}

// InstallRelay starts relaying RelaySignals to target until Stop is called.
func InstallRelay(target Signaller, log *zap.Logger) *Relay {
	r := newRelay(target, log)
	signal.Notify(r.signals, RelaySignals...)
	go r.loop()
	return r
}

func newRelay(target Signaller, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}

	r := &Relay{
		target:  target,
		log:     log,
		getpid:  os.Getpid,
		signals: make(chan os.Signal, len(RelaySignals)),
		done:    make(chan struct{}),
	}
	r.raise = func(sig syscall.Signal) error {
		return unix.Kill(r.getpid(), sig)
	}
	r.pid = r.getpid()
	return r
}

func (r *Relay) loop() {
	for {
		select {
		case sig := <-r.signals:
			if sysSig, ok := sig.(syscall.Signal); ok {
				r.handle(sysSig)
			}
		case <-r.done:
			return
		}
	}
}

// handle forwards sig to the children when running in the shell that
// installed the relay. Anywhere else the default disposition is restored and
// the signal raised again.
func (r *Relay) handle(sig syscall.Signal) {
	if r.getpid() != r.pid {
		signal.Reset(sig)
		if err := r.raise(sig); err != nil {
			r.log.Warn("re-raise failed", zap.Stringer("signal", sig), zap.Error(err))
		}
		return
	}

	r.log.Debug("relaying signal", zap.Stringer("signal", sig))
	if err := r.target.SignalAll(sig); err != nil {
		r.log.Warn("relay incomplete", zap.Stringer("signal", sig), zap.Error(err))
	}
}

// Stop stops relaying and restores the default handling of RelaySignals.
func (r *Relay) Stop() {
	r.once.Do(func() {
		signal.Stop(r.signals)
		close(r.done)
	})
}
