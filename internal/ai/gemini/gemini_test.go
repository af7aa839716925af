package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func candidateResponse(text, finishReason string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{
				"content":      map[string]any{"parts": []map[string]any{{"text": text}}},
				"finishReason": finishReason,
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGenerateSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Generation settings are fixed for determinism.
		assert.Equal(t, 0.1, req.GenerationConfig.Temperature)
		assert.Equal(t, 1, req.GenerationConfig.TopK)
		require.Len(t, req.Contents, 1)

		w.Write([]byte(candidateResponse(`[{"path":"a.go","line":3}]`, "STOP")))
	})

	res, err := c.Generate(context.Background(), "review this")
	require.NoError(t, err)
	assert.Equal(t, `[{"path":"a.go","line":3}]`, res.Text)
	assert.False(t, res.Truncated)
}

func TestGenerateTruncatedIsNotFatal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateResponse(`[{"path":"a.go","li`, "MAX_TOKENS")))
	})

	res, err := c.Generate(context.Background(), "p")
	require.NoError(t, err, "a token-limit cutoff must still return the partial text")
	assert.True(t, res.Truncated)
	assert.Equal(t, `[{"path":"a.go","li`, res.Text)
}

func TestGenerateSafetyBlocked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrSafetyBlocked)
	assert.False(t, IsRetryable(err))
}

func TestGenerateSafetyFinishReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateResponse("", "SAFETY")))
	})

	_, err := c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrSafetyBlocked)
}

func TestGenerateEmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.False(t, IsRetryable(err))
}

func TestGenerateEmptyParts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateResponse("", "STOP")))
	})

	_, err := c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`))
	})

	_, err := c.Generate(context.Background(), "p")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 429, pe.Code)
	assert.Equal(t, "RESOURCE_EXHAUSTED", pe.Status)
	assert.True(t, IsRetryable(err))
}

func TestGenerateNonRetryableProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"bad"}}`))
	})

	_, err := c.Generate(context.Background(), "p")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.False(t, IsRetryable(err))
}

func TestGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	srv.Close()

	_, err = c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.True(t, IsRetryable(err))
}
