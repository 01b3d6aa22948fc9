package pipeline

import (
	"fmt"
	"os"
)

// RedirectPolicy decides what happens to existing content of a file an output
// stream is redirected to.
type RedirectPolicy string

const (
	// PolicyTruncate empties the file before the stage writes to it.
	PolicyTruncate RedirectPolicy = "truncate"
	// PolicyAppend writes after the existing content.
	PolicyAppend RedirectPolicy = "append"
	// PolicyOverwrite writes from the start of the file without truncating
	// it, so a shorter output leaves old bytes behind.
	PolicyOverwrite RedirectPolicy = "overwrite"
)

// RedirectPolicies lists the accepted policy names.
var RedirectPolicies = []string{string(PolicyTruncate), string(PolicyAppend), string(PolicyOverwrite)}

// Validate checks that the policy is known.
func (p RedirectPolicy) Validate() error {
	for _, name := range RedirectPolicies {
		if string(p) == name {
			return nil
		}
	}
	return fmt.Errorf("unknown redirect policy %q", string(p))
}

// OpenFlags returns the open(2) flags for a file redirected onto stream.
// Redirection files are always created when missing; input files are never
// truncated or written.
func (p RedirectPolicy) OpenFlags(stream Stream) int {
	if stream == Stdin {
		// Read only rather than read-write, so read-only files can be inputs.
		return os.O_RDONLY | os.O_CREATE
	}

	flags := os.O_RDWR | os.O_CREATE
	switch p {
	case PolicyTruncate:
		flags |= os.O_TRUNC
	case PolicyAppend:
		flags |= os.O_APPEND
	}
	return flags
}

// redirectMode is the permission of files created by a redirection, before
// the umask: read and write for user and group.
const redirectMode os.FileMode = 0660
