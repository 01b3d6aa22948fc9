package pipeline

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedirectPolicyOpenFlags(t *testing.T) {
	cases := []struct {
		policy RedirectPolicy
		stream Stream
		flags  int
	}{
		{PolicyTruncate, Stdin, os.O_RDONLY | os.O_CREATE},
		{PolicyAppend, Stdin, os.O_RDONLY | os.O_CREATE},
		{PolicyTruncate, Stdout, os.O_RDWR | os.O_CREATE | os.O_TRUNC},
		{PolicyAppend, Stderr, os.O_RDWR | os.O_CREATE | os.O_APPEND},
		{PolicyOverwrite, Stdout, os.O_RDWR | os.O_CREATE},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.flags, tc.policy.OpenFlags(tc.stream), "%s %s", tc.policy, tc.stream)
	}
}

func TestRedirectPolicyValidate(t *testing.T) {
	for _, name := range RedirectPolicies {
		assert.NoError(t, RedirectPolicy(name).Validate())
	}
	assert.EqualError(t, RedirectPolicy("clobber").Validate(), `unknown redirect policy "clobber"`)
}

func TestNewSessionRejectsPolicy(t *testing.T) {
	_, err := NewSession(WithRedirectPolicy("clobber"))
	assert.Error(t, err)
}
