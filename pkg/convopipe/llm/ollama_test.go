package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllama_Complete(t *testing.T) {
	var gotPath string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"model":    "llama3",
			"response": "You accrue 20 days per year.",
			"done":     true,
		})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "llama3", WithTemperature(0.2))

	text, err := o.Complete(context.Background(), "what is the leave policy?")
	require.NoError(t, err)

	assert.Equal(t, "/api/generate", gotPath)
	assert.Equal(t, "llama3", gotReq["model"])
	assert.Equal(t, "what is the leave policy?", gotReq["prompt"])
	assert.Equal(t, false, gotReq["stream"])

	opts, ok := gotReq["options"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.2, opts["temperature"], 1e-9)

	assert.Equal(t, "You accrue 20 days per year.", text)
}

func TestOllama_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "llama3")

	_, err := o.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestOllama_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches the connection and cancels
		// r.Context() when the client disconnects.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "llama3")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := o.Complete(ctx, "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewOllama_Defaults(t *testing.T) {
	o := NewOllama("", "")
	assert.Equal(t, "http://localhost:11434", o.baseURL)
	assert.Equal(t, "llama3", o.model)
	assert.InDelta(t, 0.7, o.temperature, 1e-9)
}
