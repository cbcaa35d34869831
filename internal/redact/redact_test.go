package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactor_MasksKnownTokens(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	token := "ghp_" + "aB3dE5fG7hJ9kL1mN3pQ5rS7tU9vW1xY3zA5"
	code := "def connect():\n    token = \"" + token + "\"\n    return token\n"

	out, n := r.String(code)
	assert.GreaterOrEqual(t, n, 1)
	assert.NotContains(t, out, token)
	assert.Contains(t, out, Placeholder)
	assert.Contains(t, out, "def connect():")
}

func TestRedactor_LeavesCleanTextAlone(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	code := "def add(a, b):\n    return a + b\n"
	out, n := r.String(code)
	assert.Equal(t, 0, n)
	assert.Equal(t, code, out)
}

func TestRedactor_NilIsPassthrough(t *testing.T) {
	var r *Redactor
	out, n := r.String("anything")
	assert.Equal(t, "anything", out)
	assert.Equal(t, 0, n)
}
