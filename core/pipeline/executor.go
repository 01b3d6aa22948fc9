package pipeline

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// StageStatus describes how one stage ended.
type StageStatus struct {
	Name string
	Pid  int

	// Reaped is set once the stage has finished and its status is known.
	Reaped bool
	// Exited is set when the stage exited normally, Code then holds its
	// exit code.
	Exited bool
	Code   int
	// Signal holds the signal that killed the stage when it did not exit.
	Signal syscall.Signal
}

// Success reports whether the stage ran and exited with status 0.
func (s StageStatus) Success() bool {
	return s.Reaped && s.Exited && s.Code == 0
}

// Result is the outcome of executing a pipeline.
type Result struct {
	Stages []StageStatus
	Err    error
}

// Last returns the status of the final stage.
func (r Result) Last() StageStatus {
	if len(r.Stages) == 0 {
		return StageStatus{}
	}
	return r.Stages[len(r.Stages)-1]
}

// Success reports whether the pipeline ran and its last stage succeeded.
func (r Result) Success() bool {
	return r.Err == nil && len(r.Stages) > 0 && r.Last().Success()
}

// Execute runs a pipeline to completion. A sole builtin stage runs in the
// shell process; anything else runs as one process per stage. Problems are
// reported on the session's diagnostic writer and returned in the Result.
func (s *Session) Execute(p Pipeline) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Empty() {
		return Result{}
	}

	if err := p.Validate(); err != nil {
		s.report("%v", err)
		return Result{Err: err}
	}

	switch kind := p[0].Kind.(type) {
	case Builtin:
		return Result{Stages: []StageStatus{s.runBuiltin(p[0], kind.Op)}}
	case External:
		defer s.clear()
		return s.executeExternal(p)
	default:
		return Result{}
	}
}

// pipeEnds is one pipe connecting stage i to stage i+1.
type pipeEnds struct {
	r *os.File
	w *os.File
}

type pipeSet []pipeEnds

func openPipes(n int) (pipeSet, error) {
	pipes := make(pipeSet, 0, n)
	for i := 0; i < n; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			pipes.Close()
			return nil, err
		}
		pipes = append(pipes, pipeEnds{r: r, w: w})
	}
	return pipes, nil
}

// Close closes every end still held. It is safe to call more than once.
func (ps pipeSet) Close() error {
	var errs []error
	for i := range ps {
		if err := closeFile(&ps[i].r); err != nil {
			errs = append(errs, err)
		}
		if err := closeFile(&ps[i].w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) executeExternal(p Pipeline) Result {
	res := Result{Stages: make([]StageStatus, len(p))}
	for i, stage := range p {
		res.Stages[i].Name = stage.Name
	}

	pipes, err := openPipes(len(p) - 1)
	if err != nil {
		s.report("%v", err)
		res.Err = err
		return res
	}
	defer pipes.Close()

	if err := s.sync.Create(len(p)); err != nil {
		s.report("%v", err)
		res.Err = err
		return res
	}

	cmds := make([]*exec.Cmd, 0, len(p))
	slots := make([]int, 0, len(p))
	for i, stage := range p {
		cmd := s.stageCommand(stage, i, len(p), pipes)
		if err := s.start(cmd); err != nil {
			s.report("%v", err)
			s.abort(cmds, slots)
			res.Err = err
			return res
		}

		pid := cmd.Process.Pid
		cmds = append(cmds, cmd)
		slots = append(slots, s.registry.Register(pid))
		res.Stages[i].Pid = pid
		s.log.Debug("stage created", zap.Int("index", i+1), zap.String("name", stage.Name), zap.Int("pid", pid))
	}

	if err := s.sync.AdmitFirst(); err != nil {
		s.report("%v", err)
	}
	if err := pipes.Close(); err != nil {
		s.report("%v", err)
	}

	for i, cmd := range cmds {
		status, err := s.wait(cmd)
		if err != nil {
			s.report("%v", err)
			res.Err = err
			break
		}
		s.registry.Reset(slots[i])

		status.Name = p[i].Name
		res.Stages[i] = status
		s.log.Debug("stage reaped",
			zap.Int("index", i+1),
			zap.Int("pid", status.Pid),
			zap.Bool("exited", status.Exited),
			zap.Int("code", status.Code),
			zap.Stringer("signal", status.Signal))
	}

	s.reportResult(res)
	return res
}

// stageCommand builds the stage runner process for stage i of n.
func (s *Session) stageCommand(stage *Stage, i, n int, pipes pipeSet) *exec.Cmd {
	pipedIn := i > 0
	pipedOut := i < n-1

	args := []string{StageCommand, "--index", strconv.Itoa(i + 1), "--policy", string(s.policy)}
	if pipedIn {
		args = append(args, "--piped-in")
	}
	if pipedOut {
		args = append(args, "--piped-out")
	}
	for stream, path := range stage.Redirect {
		if path != "" {
			args = append(args, "--"+stageRedirectOptions[stream], path)
		}
	}
	args = append(args, "--")
	args = append(args, stage.Args...)

	cmd := exec.Command(s.executable, args...)
	cmd.Env = append(os.Environ(), SyncEnv+"="+s.sync.Name())

	cmd.Stdin = s.stdin
	if pipedIn {
		cmd.Stdin = pipes[i-1].r
	}
	cmd.Stdout = s.stdout
	if pipedOut {
		cmd.Stdout = pipes[i].w
	}
	cmd.Stderr = s.stderr

	wait, release := s.sync.Handles(i + 1)
	cmd.ExtraFiles = []*os.File{wait}
	if release != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, release)
	}

	return cmd
}

// abort kills the stages created so far, none of which has been admitted, and
// reaps them.
func (s *Session) abort(cmds []*exec.Cmd, slots []int) {
	if err := s.registry.SignalAll(unix.SIGKILL); err != nil {
		s.report("%v", err)
	}
	for i, cmd := range cmds {
		_ = cmd.Wait()
		s.registry.Reset(slots[i])
	}
	s.log.Debug("pipeline aborted", zap.Int("created", len(cmds)))
}

// waitStage reaps one stage. Only a failure to wait is returned as an error;
// a non-zero or signalled exit is part of the status.
func waitStage(cmd *exec.Cmd) (StageStatus, error) {
	err := cmd.Wait()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return StageStatus{}, fmt.Errorf("wait %d: %w", cmd.Process.Pid, err)
	}

	status := StageStatus{Pid: cmd.Process.Pid, Reaped: true}
	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		status.Exited = true
		status.Code = cmd.ProcessState.ExitCode()
		return status, nil
	}

	switch {
	case ws.Exited():
		status.Exited = true
		status.Code = ws.ExitStatus()
	case ws.Signaled():
		status.Signal = ws.Signal()
	}
	return status, nil
}

// reportResult prints the outcome of a finished pipeline. Intermediate stages
// are only reported when the stage runner could not start their program; the
// last stage is reported whenever it did not exit cleanly.
func (s *Session) reportResult(res Result) {
	last := len(res.Stages) - 1
	for i, stage := range res.Stages {
		if !stage.Reaped || stage.Exited {
			continue
		}
		if i == last || stage.Signal == abortSignal {
			s.report("failed to run %s", stage.Name)
		}
	}

	if final := res.Stages[last]; final.Reaped && final.Exited && final.Code != 0 {
		reportStatus(s.diag, final.Name, final.Code)
	}
}
