package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Model: "gemma3:1b"})
}

func TestGenerate(t *testing.T) {
	var gotReq generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"response":"Olá mundo","done":true}`))
	})

	text, err := c.Generate(context.Background(), "pergunta", driven.GenerateOptions{
		MaxTokens:     450,
		Temperature:   0.4,
		ContextWindow: 4096,
	})

	require.NoError(t, err)
	assert.Equal(t, "Olá mundo", text)
	assert.Equal(t, "gemma3:1b", gotReq.Model)
	assert.Equal(t, "pergunta", gotReq.Prompt)
	assert.False(t, gotReq.Stream)
	require.NotNil(t, gotReq.Options)
	assert.Equal(t, 450, gotReq.Options.NumPredict)
	assert.Equal(t, 4096, gotReq.Options.NumCtx)
	assert.InDelta(t, 0.4, gotReq.Options.Temperature, 0.001)
}

func TestGenerate_OmitsOptionsWhenUnset(t *testing.T) {
	var gotReq generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"response":"ok","done":true}`))
	})

	_, err := c.Generate(context.Background(), "pergunta", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Nil(t, gotReq.Options)
}

func TestGenerate_NonOKStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := c.Generate(context.Background(), "pergunta", driven.GenerateOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		io.WriteString(w, `{"response":"Olá","done":false}`+"\n")
		io.WriteString(w, `{"response":" mundo","done":false}`+"\n")
		io.WriteString(w, `{"response":"","done":true}`+"\n")
	})

	ts, err := c.Stream(context.Background(), "pergunta", driven.GenerateOptions{})
	require.NoError(t, err)
	defer ts.Close()

	token, err := ts.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Olá", token)

	token, err = ts.Recv()
	require.NoError(t, err)
	assert.Equal(t, " mundo", token)

	_, err = ts.Recv()
	assert.ErrorIs(t, err, io.EOF)

	// EOF is sticky.
	_, err = ts.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_SkipsMalformedLines(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "{broken json\n")
		io.WriteString(w, `{"response":"ok","done":false}`+"\n")
		io.WriteString(w, `{"response":"","done":true}`+"\n")
	})

	ts, err := c.Stream(context.Background(), "pergunta", driven.GenerateOptions{})
	require.NoError(t, err)
	defer ts.Close()

	token, err := ts.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ok", token)

	_, err = ts.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_FinalDeltaOnDoneLine(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"response":"tudo","done":true}`+"\n")
	})

	ts, err := c.Stream(context.Background(), "pergunta", driven.GenerateOptions{})
	require.NoError(t, err)
	defer ts.Close()

	token, err := ts.Recv()
	require.NoError(t, err)
	assert.Equal(t, "tudo", token)

	_, err = ts.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_UnterminatedFinalLine(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		// Connection drops mid-stream without a trailing newline.
		io.WriteString(w, `{"response":"parcial","done":false}`)
	})

	ts, err := c.Stream(context.Background(), "pergunta", driven.GenerateOptions{})
	require.NoError(t, err)
	defer ts.Close()

	token, err := ts.Recv()
	require.NoError(t, err)
	assert.Equal(t, "parcial", token)

	_, err = ts.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestName(t *testing.T) {
	assert.Equal(t, "ollama/gemma3:1b", New(Config{}).Name())
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultModel, c.model)
}
