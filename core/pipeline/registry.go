package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Registry tracks the pids of the live children of the shell.
//
// Slots are filled contiguously as children are created and emptied once a
// child has been reaped, so a pid held in a slot can never have been recycled
// by the kernel. Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	slots []int
	live  int
	log   *zap.Logger

	// kill delivers a signal to one pid.
	kill func(pid int, sig syscall.Signal) error
}

// NewRegistry creates a registry with room for capacity children before it
// has to grow.
func NewRegistry(capacity int, log *zap.Logger) *Registry {
	if capacity < 1 {
		capacity = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Registry{
		slots: make([]int, 0, capacity),
		log:   log,
		kill:  unix.Kill,
	}
}

// Register records a newly created child and returns its slot.
func (r *Registry) Register(pid int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots = append(r.slots, pid)
	r.live++
	return len(r.slots) - 1
}

// Reset empties a slot after its child has been reaped.
func (r *Registry) Reset(slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot < 0 || slot >= len(r.slots) || r.slots[slot] == 0 {
		return
	}
	r.slots[slot] = 0
	r.live--
}

// Live returns the number of registered children not yet reaped.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Pids returns the pids of the live children in creation order.
func (r *Registry) Pids() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pids []int
	for _, pid := range r.slots {
		if pid != 0 {
			pids = append(pids, pid)
		}
	}
	return pids
}

// SignalAll sends sig to every live child. A failed delivery is reported in
// the returned error but does not stop delivery to the others.
func (r *Registry) SignalAll(sig syscall.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signalLocked(sig)
}

func (r *Registry) signalLocked(sig syscall.Signal) error {
	var errs []error
	for _, pid := range r.slots {
		if pid == 0 {
			continue
		}
		if err := r.kill(pid, sig); err != nil {
			r.log.Warn("signal delivery failed", zap.Int("pid", pid), zap.Stringer("signal", sig), zap.Error(err))
			errs = append(errs, fmt.Errorf("signal %d: %w", pid, err))
		}
	}
	return errors.Join(errs...)
}

// Clear terminates every child still registered and empties the registry.
// Calling Clear with no live children does nothing.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.signalLocked(unix.SIGTERM)
	r.slots = r.slots[:0]
	r.live = 0
	return err
}
