package pdftotext

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner implements CommandRunner, recording the invocation.
type mockRunner struct {
	output []byte
	err    error

	gotName string
	gotArgs []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.gotName = name
	m.gotArgs = args
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func TestExtract(t *testing.T) {
	runner := &mockRunner{output: []byte("texto extraído do documento")}
	e := NewWithRunner(runner)

	text, err := e.Extract(context.Background(), "/docs/lgpd.pdf")

	require.NoError(t, err)
	assert.Equal(t, "texto extraído do documento", text)
	assert.Equal(t, "pdftotext", runner.gotName)
	assert.Equal(t, []string{"-layout", "-q", "/docs/lgpd.pdf", "-"}, runner.gotArgs)
}

func TestExtract_EmptyOutputIsNotAnError(t *testing.T) {
	e := NewWithRunner(&mockRunner{output: nil})

	text, err := e.Extract(context.Background(), "/docs/scanned.pdf")

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_CommandFailure(t *testing.T) {
	e := NewWithRunner(&mockRunner{err: errors.New("exit status 1")})

	_, err := e.Extract(context.Background(), "/docs/broken.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "/docs/broken.pdf")
}
