package shell

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLine(t *testing.T) {
	sh, output, diag := newTestShell(t)

	res := sh.RunLine("echo a b | tr a A")

	assert.True(t, res.Success())
	assert.Equal(t, "A b\n", output())
	assert.Empty(t, diag.String())
}

func TestRunLineSyntaxError(t *testing.T) {
	sh, output, diag := newTestShell(t)

	res := sh.RunLine(`echo "abc`)

	assert.ErrorIs(t, res.Err, ErrInvalidTokens)
	assert.Empty(t, output())
	assert.Equal(t, "kara: syntax error: unexpected end of file\n", diag.String())
}

func TestRunLineBlank(t *testing.T) {
	sh, _, diag := newTestShell(t)

	res := sh.RunLine("   ")

	assert.NoError(t, res.Err)
	assert.Empty(t, res.Stages)
	assert.Empty(t, diag.String())
}

func TestRun(t *testing.T) {
	sh, output, diag := newTestShell(t)
	sh.In = strings.NewReader("echo one\n\nls |\necho two\n")

	require.NoError(t, sh.Run())

	assert.Equal(t, "one\ntwo\n", output())
	assert.Equal(t, "kara: syntax error: empty command after pipe\n", diag.String())
	assert.Empty(t, sh.Out.(*bytes.Buffer).String())
}

func TestRunInteractivePrompt(t *testing.T) {
	sh, _, _ := newTestShell(t)
	sh.In = strings.NewReader("\n")
	sh.Interactive = true
	sh.prompt = fakePrompt("/srv", "/home/kara")

	require.NoError(t, sh.Run())

	assert.Equal(t, "/srv 殻 /srv 殻 \n", sh.Out.(*bytes.Buffer).String())
}

func TestRunPromptFailure(t *testing.T) {
	sh, _, _ := newTestShell(t)
	sh.In = strings.NewReader("echo never\n")
	sh.Interactive = true
	sh.prompt.getwd = func() (string, error) {
		return "", errors.New("cwd removed")
	}

	assert.EqualError(t, sh.Run(), "render prompt: cwd removed")
}

func TestRunScript(t *testing.T) {
	sh, output, diag := newTestShell(t)
	sh.Fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(sh.Fs, "/first.kara", []byte("echo 1\necho 2 | cat\n"), 0644))
	require.NoError(t, afero.WriteFile(sh.Fs, "/second.kara", []byte("false\n"), 0644))

	require.NoError(t, sh.RunScript("/first.kara", "/second.kara"))

	assert.Equal(t, "1\n2\n", output())
	assert.Equal(t, "false exit status 1\n", diag.String())
}

func TestRunScriptMissing(t *testing.T) {
	sh, output, _ := newTestShell(t)
	sh.Fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(sh.Fs, "/ok.kara", []byte("echo ran\n"), 0644))

	err := sh.RunScript("/missing.kara", "/ok.kara")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `failed to open "/missing.kara"`)
	assert.Empty(t, output())
}

func fakePrompt(wd, home string) *Prompt {
	p := NewPrompt()
	p.getwd = func() (string, error) { return wd, nil }
	p.home = func() string { return home }
	return p
}

func TestPromptHome(t *testing.T) {
	p := fakePrompt("/home/kara/src", "/home/kara")

	prompt, err := p.Render()

	require.NoError(t, err)
	assert.Equal(t, "~/src 殻 ", prompt)
}

func TestPromptRotatesColor(t *testing.T) {
	color.NoColor = false
	defer func() { color.NoColor = true }()

	p := fakePrompt("/", "")

	var prompts []string
	for i := 0; i < 8; i++ {
		prompt, err := p.Render()
		require.NoError(t, err)
		prompts = append(prompts, prompt)
	}

	assert.Equal(t, "/\x1b[31;1m 殻 \x1b[0m", prompts[0])
	assert.Equal(t, "/\x1b[32;1m 殻 \x1b[0m", prompts[1])
	assert.Equal(t, "/\x1b[37;1m 殻 \x1b[0m", prompts[6])
	assert.Equal(t, prompts[0], prompts[7])
}
