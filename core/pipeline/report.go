package pipeline

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// ColorBoldRed is used for every diagnostic the shell prints.
var ColorBoldRed = color.New(color.FgRed, color.Bold)

// Reportf prints a diagnostic prefixed with the shell name.
func Reportf(w io.Writer, format string, args ...interface{}) {
	ColorBoldRed.Fprintf(w, "kara: %s\n", fmt.Sprintf(format, args...))
}

// reportStatus prints the exit status line of a pipeline. It carries no
// prefix, as the status belongs to the command rather than the shell.
func reportStatus(w io.Writer, name string, code int) {
	ColorBoldRed.Fprintf(w, "%s exit status %d\n", name, code)
}
