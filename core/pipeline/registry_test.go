package pipeline

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

type sentSignal struct {
	pid int
	sig syscall.Signal
}

func newFakeRegistry(capacity int, failPid int) (*Registry, *[]sentSignal) {
	var sent []sentSignal
	r := NewRegistry(capacity, nil)
	r.kill = func(pid int, sig syscall.Signal) error {
		if pid == failPid {
			return unix.ESRCH
		}
		sent = append(sent, sentSignal{pid: pid, sig: sig})
		return nil
	}
	return r, &sent
}

func TestRegistryGrows(t *testing.T) {
	r, _ := newFakeRegistry(1, 0)

	for i := 0; i < 5; i++ {
		assert.Equal(t, i, r.Register(100+i))
	}

	assert.Equal(t, 5, r.Live())
	assert.Equal(t, []int{100, 101, 102, 103, 104}, r.Pids())
}

func TestRegistryReset(t *testing.T) {
	r, sent := newFakeRegistry(4, 0)
	r.Register(10)
	slot := r.Register(11)
	r.Register(12)

	r.Reset(slot)
	r.Reset(slot)
	r.Reset(42)

	assert.Equal(t, 2, r.Live())
	assert.NoError(t, r.SignalAll(unix.SIGINT))
	assert.Equal(t, []sentSignal{{10, unix.SIGINT}, {12, unix.SIGINT}}, *sent)
}

func TestRegistrySignalAllContinuesOnFailure(t *testing.T) {
	r, sent := newFakeRegistry(4, 20)
	r.Register(20)
	r.Register(21)

	err := r.SignalAll(unix.SIGQUIT)

	assert.True(t, errors.Is(err, unix.ESRCH))
	assert.Equal(t, []sentSignal{{21, unix.SIGQUIT}}, *sent)
}

func TestRegistryClear(t *testing.T) {
	r, sent := newFakeRegistry(4, 0)
	r.Register(30)
	r.Reset(r.Register(31))

	assert.NoError(t, r.Clear())
	assert.Equal(t, []sentSignal{{30, unix.SIGTERM}}, *sent)
	assert.Equal(t, 0, r.Live())
	assert.Empty(t, r.Pids())

	// Nothing left to signal.
	assert.NoError(t, r.Clear())
	assert.Len(t, *sent, 1)
}
