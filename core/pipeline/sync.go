package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// SyncEnv carries the synchronizer name into every stage process.
const SyncEnv = "KARA_SYNC"

// SyncName derives the synchronizer name of the shell running as pid.
func SyncName(pid int) string {
	return fmt.Sprintf("kara.%d", pid)
}

// gate is a one-shot barrier: it opens when every copy of w has been closed.
type gate struct {
	r *os.File
	w *os.File
}

// Synchronizer admits the stages of a pipeline strictly left to right.
//
// Every stage k owns a gate. Stage k waits for its gate to open and holds the
// write end of gate k+1 marked close-on-exec, so the next gate opens exactly
// when stage k has replaced its image or died. The shell holds every write end
// until all stages exist and then closes them, which opens gate 1 only.
type Synchronizer struct {
	name  string
	gates []gate
}

// NewSynchronizer creates an empty synchronizer.
func NewSynchronizer(name string) *Synchronizer {
	return &Synchronizer{name: name}
}

// Name returns the per-shell name of the synchronizer.
func (s *Synchronizer) Name() string {
	return s.name
}

// Create allocates one gate per stage, releasing any earlier gates first. On
// failure nothing stays allocated.
func (s *Synchronizer) Create(stages int) error {
	s.Destroy()
	if stages < 1 {
		return ErrNoStages
	}

	s.gates = make([]gate, 0, stages)
	for i := 0; i < stages; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			s.Destroy()
			return fmt.Errorf("create gate %d: %w", i+1, err)
		}
		s.gates = append(s.gates, gate{r: r, w: w})
	}
	return nil
}

// Handles returns the files stage k (1-based) inherits: the gate it waits on
// and the gate it releases. release is nil for the last stage.
func (s *Synchronizer) Handles(k int) (wait, release *os.File) {
	wait = s.gates[k-1].r
	if k < len(s.gates) {
		release = s.gates[k].w
	}
	return wait, release
}

// AdmitFirst lets stage 1 run and gives up every handle the shell still
// holds. It must only be called once every stage process exists.
func (s *Synchronizer) AdmitFirst() error {
	if len(s.gates) == 0 {
		return ErrNoStages
	}

	err := closeFile(&s.gates[0].w)
	s.Destroy()
	return err
}

// Open returns the number of gates currently allocated.
func (s *Synchronizer) Open() int {
	return len(s.gates)
}

// Destroy closes every handle held by the shell. It is safe to call more
// than once.
func (s *Synchronizer) Destroy() {
	for i := range s.gates {
		closeFile(&s.gates[i].r)
		closeFile(&s.gates[i].w)
	}
	s.gates = nil
}

// WaitForTurn blocks until the gate read through wait opens, then closes it.
func WaitForTurn(wait *os.File) error {
	defer wait.Close()

	buf := make([]byte, 1)
	for {
		_, err := wait.Read(buf)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("wait for turn: %w", err)
		}
	}
}

// MarkReleaseOnExec arranges for release to close when the process image is
// replaced, which opens the next stage's gate.
func MarkReleaseOnExec(release *os.File) {
	if release == nil {
		return
	}
	unix.CloseOnExec(int(release.Fd()))
}

func closeFile(f **os.File) error {
	if *f == nil {
		return nil
	}
	err := (*f).Close()
	*f = nil
	return err
}
