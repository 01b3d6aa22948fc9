package pipeline

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/sys/unix"
)

// StageCommand is the hidden argument that turns the shell binary into a
// stage runner. Binaries embedding a Session must pass the remaining
// arguments to RunStage when they see it.
const StageCommand = "__stage"

// Descriptors every stage runner inherits past the standard streams.
const (
	waitFd    = 3
	releaseFd = 4
)

// beforeExec, when set, is called with the stage index right before the
// program is started.
var beforeExec func(index int)

// abortSignal ends a stage runner that could not start its program.
const abortSignal = unix.SIGKILL

var stageRedirectOptions = [3]string{
	Stdin:  "in",
	Stdout: "out",
	Stderr: "err",
}

// RunStage runs inside a freshly created stage process: it applies the
// stage's redirections, waits until the previous stage has started, then
// replaces itself with the stage's program. It only returns when something
// went wrong before the program could be started.
func RunStage(args []string) int {
	opts := getopt.New()
	index := opts.IntLong("index", 0, 0, "1-based position of the stage")
	pipedIn := opts.BoolLong("piped-in", 0, "stdin is connected to the previous stage")
	pipedOut := opts.BoolLong("piped-out", 0, "stdout is connected to the next stage")
	policy := opts.EnumLong(
		"policy",
		rune(0),
		RedirectPolicies,
		string(PolicyTruncate),
		"how output files are opened (truncate|append|overwrite)")

	var redirect [3]string
	for stream, name := range stageRedirectOptions {
		opts.FlagLong(&redirect[stream], name, 0, "redirect "+Stream(stream).String()+" to a file")
	}

	if err := opts.Getopt(append([]string{StageCommand}, args...), nil); err != nil {
		fmt.Fprintf(os.Stderr, "kara: stage: %s\n", err)
		return 2
	}

	argv := opts.Args()
	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "kara: stage: no program given")
		return 2
	}

	wait := os.NewFile(waitFd, "kara-wait")
	var release *os.File
	if *pipedOut {
		release = os.NewFile(releaseFd, "kara-release")
	}
	MarkReleaseOnExec(release)

	piped := [3]bool{Stdin: *pipedIn, Stdout: *pipedOut}
	if err := applyRedirects(redirect, piped, RedirectPolicy(*policy)); err != nil {
		fmt.Fprintf(os.Stderr, "kara: %s\n", err)
		return errnoOf(err)
	}

	if err := WaitForTurn(wait); err != nil {
		fmt.Fprintf(os.Stderr, "kara: stage %d: %s\n", *index, err)
		return errnoOf(err)
	}

	if beforeExec != nil {
		beforeExec(*index)
	}
	execStage(argv)

	// The release file must not be finalized, closing the next gate early,
	// while this process waits or execs.
	runtime.KeepAlive(release)
	return 1
}

// applyRedirects opens every redirection file of the stage. A file is put in
// place of its stream unless the stream is connected to a pipe, in which case
// the file is only created.
func applyRedirects(redirect [3]string, piped [3]bool, policy RedirectPolicy) error {
	for i, path := range redirect {
		if path == "" {
			continue
		}

		stream := Stream(i)
		f, err := os.OpenFile(path, policy.OpenFlags(stream), redirectMode)
		if err != nil {
			return err
		}

		if !piped[stream] {
			if err := unix.Dup2(int(f.Fd()), int(stream)); err != nil {
				f.Close()
				return fmt.Errorf("redirect %s to %s: %w", stream, path, err)
			}
		}
		f.Close()
	}
	return nil
}

// execStage replaces the process with argv. If that fails the process ends
// by signal, so the shell can tell it apart from a program that ran and
// failed.
func execStage(argv []string) {
	path, err := exec.LookPath(argv[0])
	if err == nil || errors.Is(err, exec.ErrDot) {
		err = unix.Exec(path, argv, programEnv(os.Environ()))
	}
	fmt.Fprintf(os.Stderr, "kara: %s: %s\n", argv[0], err)

	unix.Kill(os.Getpid(), abortSignal)
}

// programEnv drops the variables only the stage runner needs from env.
func programEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if !strings.HasPrefix(kv, SyncEnv+"=") {
			out = append(out, kv)
		}
	}
	return out
}

// errnoOf returns the OS error number behind err, or 1 when there is none.
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return 1
}
