package failover

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// --- Mock implementations ---

type stubStream struct {
	tokens []string
	pos    int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos < len(s.tokens) {
		token := s.tokens[s.pos]
		s.pos++
		return token, nil
	}
	return "", io.EOF
}

func (s *stubStream) Close() error { return nil }

// stubBackend implements driven.Generator with fixed behaviour.
type stubBackend struct {
	name      string
	text      string
	genErr    error
	stream    driven.TokenStream
	streamErr error

	generateCalls int
	streamCalls   int
}

func (s *stubBackend) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	s.generateCalls++
	return s.text, s.genErr
}

func (s *stubBackend) Stream(_ context.Context, _ string, _ driven.GenerateOptions) (driven.TokenStream, error) {
	s.streamCalls++
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	return s.stream, nil
}

func (s *stubBackend) Name() string { return s.name }

// --- Tests ---

func TestGenerate_PrimarySucceeds(t *testing.T) {
	primary := &stubBackend{name: "cloud", text: "resposta primária"}
	secondary := &stubBackend{name: "local", text: "resposta local"}
	g := New(primary, secondary)

	text, err := g.Generate(context.Background(), "pergunta", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "resposta primária", text)
	assert.Zero(t, secondary.generateCalls)
}

func TestGenerate_PrimaryFails_SecondaryAnswers(t *testing.T) {
	primary := &stubBackend{name: "cloud", genErr: errors.New("quota exceeded")}
	secondary := &stubBackend{name: "local", text: "ANSWER"}
	g := New(primary, secondary)

	text, err := g.Generate(context.Background(), "pergunta", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "ANSWER", text)
	assert.Equal(t, 1, primary.generateCalls)
	assert.Equal(t, 1, secondary.generateCalls)
}

func TestGenerate_EmptyAnswerCountsAsFailure(t *testing.T) {
	primary := &stubBackend{name: "cloud", text: "   "}
	secondary := &stubBackend{name: "local", text: "resposta local"}
	g := New(primary, secondary)

	text, err := g.Generate(context.Background(), "pergunta", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "resposta local", text)
}

func TestGenerate_BothFail(t *testing.T) {
	primary := &stubBackend{name: "cloud", genErr: errors.New("down")}
	secondary := &stubBackend{name: "local", genErr: errors.New("also down")}
	g := New(primary, secondary)

	_, err := g.Generate(context.Background(), "pergunta", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestGenerate_NoPrimary(t *testing.T) {
	secondary := &stubBackend{name: "local", text: "resposta local"}
	g := New(nil, secondary)

	text, err := g.Generate(context.Background(), "pergunta", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "resposta local", text)
}

func TestGenerate_OnlyPrimaryConfigured_FailureSurfaces(t *testing.T) {
	primary := &stubBackend{name: "cloud", genErr: errors.New("down")}
	g := New(primary, nil)

	_, err := g.Generate(context.Background(), "pergunta", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestStream_PrimarySucceeds(t *testing.T) {
	primary := &stubBackend{name: "cloud", stream: &stubStream{tokens: []string{"a", "b"}}}
	secondary := &stubBackend{name: "local"}
	g := New(primary, secondary)

	ts, err := g.Stream(context.Background(), "pergunta", driven.GenerateOptions{})

	require.NoError(t, err)
	token, err := ts.Recv()
	require.NoError(t, err)
	assert.Equal(t, "a", token)
	assert.Zero(t, secondary.streamCalls)
}

func TestStream_FallsBackOnEstablishmentFailure(t *testing.T) {
	primary := &stubBackend{name: "cloud", streamErr: errors.New("connect refused")}
	secondary := &stubBackend{name: "local", stream: &stubStream{tokens: []string{"local"}}}
	g := New(primary, secondary)

	ts, err := g.Stream(context.Background(), "pergunta", driven.GenerateOptions{})

	require.NoError(t, err)
	token, err := ts.Recv()
	require.NoError(t, err)
	assert.Equal(t, "local", token)
}

func TestStream_BothFail(t *testing.T) {
	primary := &stubBackend{name: "cloud", streamErr: errors.New("down")}
	secondary := &stubBackend{name: "local", streamErr: errors.New("also down")}
	g := New(primary, secondary)

	_, err := g.Stream(context.Background(), "pergunta", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestName(t *testing.T) {
	assert.Equal(t, "cloud→local", New(&stubBackend{name: "cloud"}, &stubBackend{name: "local"}).Name())
	assert.Equal(t, "local", New(nil, &stubBackend{name: "local"}).Name())
	assert.Equal(t, "cloud", New(&stubBackend{name: "cloud"}, nil).Name())
}
