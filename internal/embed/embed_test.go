package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caseerrors "github.com/akverma-qa/casefind/internal/errors"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func() error {
		calls++
		return errors.New("permanent")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 retries")
	// Initial attempt plus two retries.
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ContextCancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, fastRetry(), func() error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		json.NewEncoder(w).Encode(embedResponse{
			Embedding:  []float32{3, 4},
			TokensUsed: 7,
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "test-model", 2, WithRetryConfig(fastRetry()))
	defer e.Close()

	emb, err := e.Embed(context.Background(), "patient login")
	require.NoError(t, err)
	assert.Equal(t, 7, emb.TokensUsed)
	// Vector comes back unit-normalized.
	assert.InDelta(t, 0.6, emb.Vector[0], 1e-6)
	assert.InDelta(t, 0.8, emb.Vector[1], 1e-6)
}

func TestHTTPEmbedder_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 0}})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "test-model", 2, WithRetryConfig(fastRetry()))
	defer e.Close()

	_, err := e.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPEmbedder_ExhaustedRetriesCarryErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "test-model", 2, WithRetryConfig(fastRetry()))
	defer e.Close()

	_, err := e.Embed(context.Background(), "q")

	require.Error(t, err)
	assert.Equal(t, caseerrors.ErrCodeEmbeddingFailed, caseerrors.GetCode(err))
	assert.True(t, caseerrors.IsRetryable(err))
}

func TestHTTPEmbedder_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 2, 3}})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "test-model", 2, WithRetryConfig(RetryConfig{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}))
	defer e.Close()

	_, err := e.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestCachedEmbedder_HitsSkipInner(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 0}})
	}))
	defer srv.Close()

	c := NewCachedEmbedder(NewHTTPEmbedder(srv.URL, "m", 2, WithRetryConfig(fastRetry())), 10)
	defer c.Close()

	first, err := c.Embed(context.Background(), "same query")
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), "same query")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	s := NewStaticEmbedder()

	a, err := s.Embed(context.Background(), "patient login otp")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "patient login otp")
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.Equal(t, 3, a.TokensUsed)
	assert.Len(t, a.Vector, StaticDimensions)

	other, err := s.Embed(context.Background(), "billing report")
	require.NoError(t, err)
	assert.NotEqual(t, a.Vector, other.Vector)
}
