package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/asikorin/kara/core/pipeline"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == pipeline.StageCommand {
		os.Exit(pipeline.RunStage(os.Args[2:]))
	}

	color.NoColor = true
	os.Exit(m.Run())
}

// newTestShell returns a shell whose pipelines write to a file and whose
// diagnostics go to a buffer, along with a reader for that file.
func newTestShell(t *testing.T) (*Shell, func() string, *bytes.Buffer) {
	t.Helper()

	out := filepath.Join(t.TempDir(), "stdout")
	stdout, err := os.Create(out)
	require.NoError(t, err)
	t.Cleanup(func() { stdout.Close() })

	stdin, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() { stdin.Close() })

	diag := &bytes.Buffer{}
	session, err := pipeline.NewSession(
		pipeline.WithStdio(stdin, stdout, os.Stderr),
		pipeline.WithDiagnostics(diag),
	)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	sh := New(session)
	sh.Diag = diag
	sh.Out = &bytes.Buffer{}

	read := func() string {
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		return string(data)
	}
	return sh, read, diag
}
