package pipeline

import (
	"fmt"
	"os"
	"sort"
)

// BuiltinOp identifies a command implemented inside the shell.
type BuiltinOp int

const (
	OpCd BuiltinOp = iota + 1
	OpExit
)

// String returns the command name of the builtin.
func (op BuiltinOp) String() string {
	for name, entry := range allBuiltins {
		if entry.op == op {
			return name
		}
	}
	return fmt.Sprintf("builtin(%d)", int(op))
}

// BuiltinFunc runs a builtin in the shell process and returns its status.
type BuiltinFunc func(s *Session, args []string) int

type builtinEntry struct {
	op   BuiltinOp
	main BuiltinFunc
}

// allBuiltins holds the registered shell builtins keyed by name.
var allBuiltins = make(map[string]builtinEntry)

func addBuiltin(name string, op BuiltinOp, main BuiltinFunc) {
	allBuiltins[name] = builtinEntry{op: op, main: main}
}

// LookupBuiltin reports whether name is a builtin and which one.
func LookupBuiltin(name string) (BuiltinOp, bool) {
	entry, ok := allBuiltins[name]
	return entry.op, ok
}

// BuiltinNames lists the builtin names in sorted order.
func BuiltinNames() []string {
	var names []string
	for name := range allBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin. It changes to the directory named by the first
// argument and leaves the working directory alone on failure.
func Cd(s *Session, args []string) int {
	var dir string
	if len(args) > 1 {
		dir = args[1]
	}

	if err := os.Chdir(dir); err != nil {
		s.report("%v", err)
		return 1
	}

	if wd, err := os.Getwd(); err == nil {
		os.Setenv("PWD", wd)
	}
	return 0
}

// Exit quits the shell immediately with a success status.
func Exit(s *Session, args []string) int {
	s.exit(0)
	return 0
}

// runBuiltin dispatches a sole builtin stage without creating a process.
func (s *Session) runBuiltin(stage *Stage, op BuiltinOp) StageStatus {
	status := StageStatus{Name: stage.Name, Pid: os.Getpid()}

	for _, entry := range allBuiltins {
		if entry.op == op {
			status.Code = entry.main(s, stage.Args)
			status.Reaped = true
			status.Exited = true
			return status
		}
	}

	s.report("%s: unknown builtin", stage.Name)
	return status
}

func init() {
	addBuiltin("cd", OpCd, Cd)
	addBuiltin("exit", OpExit, Exit)
}
