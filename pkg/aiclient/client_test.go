package aiclient_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauseguard/clauseguard/pkg/aiclient"
)

func completionResponse(content string) string {
	out, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(out)
}

type requestLog struct {
	mu     sync.Mutex
	models []string
	keys   []string
}

func (l *requestLog) record(r *http.Request) {
	var body struct {
		Model string `json:"model"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	l.mu.Lock()
	l.models = append(l.models, body.Model)
	l.keys = append(l.keys, r.Header.Get("Authorization"))
	l.mu.Unlock()
}

func testConfig(url string) aiclient.Config {
	return aiclient.Config{
		BaseURL:        url,
		APIKeys:        []string{"key-a"},
		Models:         []string{"model-1"},
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RequestTimeout: 5 * time.Second,
	}
}

func TestClient_Generate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("successful completion", func(t *testing.T) {
		t.Parallel()
		log := &requestLog{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer key-a", r.Header.Get("Authorization"))
			log.record(r)
			fmt.Fprint(w, completionResponse("the clause limits liability"))
		}))
		defer srv.Close()

		client, err := aiclient.New(testConfig(srv.URL))
		require.NoError(t, err)

		text, err := client.Generate(ctx, "explain this clause")
		require.NoError(t, err)
		assert.Equal(t, "the clause limits liability", text)
		assert.Equal(t, []string{"model-1"}, log.models)
	})

	t.Run("retries rate limit then succeeds", func(t *testing.T) {
		t.Parallel()
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, completionResponse("ok"))
		}))
		defer srv.Close()

		client, err := aiclient.New(testConfig(srv.URL))
		require.NoError(t, err)

		text, err := client.Generate(ctx, "prompt")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, 3, calls)
	})

	t.Run("falls back to the next model", func(t *testing.T) {
		t.Parallel()
		log := &requestLog{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Model string `json:"model"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			log.mu.Lock()
			log.models = append(log.models, body.Model)
			log.mu.Unlock()
			if body.Model == "model-1" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, completionResponse("from fallback"))
		}))
		defer srv.Close()

		cfg := testConfig(srv.URL)
		cfg.Models = []string{"model-1", "model-2"}
		client, err := aiclient.New(cfg)
		require.NoError(t, err)

		text, err := client.Generate(ctx, "prompt")
		require.NoError(t, err)
		assert.Equal(t, "from fallback", text)
		// Three failed attempts on model-1, then model-2.
		assert.Equal(t, []string{"model-1", "model-1", "model-1", "model-2"}, log.models)
	})

	t.Run("exhausts the chain", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		cfg := testConfig(srv.URL)
		cfg.Models = []string{"model-1", "model-2"}
		client, err := aiclient.New(cfg)
		require.NoError(t, err)

		_, err = client.Generate(ctx, "prompt")
		require.ErrorIs(t, err, aiclient.ErrGeneratorExhausted)
	})

	t.Run("non-retryable error aborts immediately", func(t *testing.T) {
		t.Parallel()
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client, err := aiclient.New(testConfig(srv.URL))
		require.NoError(t, err)

		_, err = client.Generate(ctx, "prompt")
		require.Error(t, err)
		assert.NotErrorIs(t, err, aiclient.ErrGeneratorExhausted)
		assert.Equal(t, 1, calls, "auth failures must not be retried")
	})

	t.Run("empty prompt", func(t *testing.T) {
		t.Parallel()
		client, err := aiclient.New(testConfig("http://localhost:1"))
		require.NoError(t, err)

		_, err = client.Generate(ctx, "   ")
		require.ErrorIs(t, err, aiclient.ErrEmptyPrompt)
	})

	t.Run("rotates API keys across requests", func(t *testing.T) {
		t.Parallel()
		log := &requestLog{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.record(r)
			fmt.Fprint(w, completionResponse("ok"))
		}))
		defer srv.Close()

		cfg := testConfig(srv.URL)
		cfg.APIKeys = []string{"key-a", "key-b"}
		client, err := aiclient.New(cfg)
		require.NoError(t, err)

		for i := 0; i < 4; i++ {
			_, err := client.Generate(ctx, "prompt")
			require.NoError(t, err)
		}
		assert.Equal(t, []string{"Bearer key-a", "Bearer key-b", "Bearer key-a", "Bearer key-b"}, log.keys)
	})
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := aiclient.New(aiclient.Config{Models: []string{"m"}})
	require.ErrorIs(t, err, aiclient.ErrNoCredentials)

	_, err = aiclient.New(aiclient.Config{APIKeys: []string{"k"}})
	require.ErrorIs(t, err, aiclient.ErrNoModels)
}

func TestCredentialPool_Rotation(t *testing.T) {
	t.Parallel()

	pool, err := aiclient.NewCredentialPool([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Size())

	got := []string{pool.Next(), pool.Next(), pool.Next(), pool.Next()}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
}
