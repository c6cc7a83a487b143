package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	caseerrors "github.com/akverma-qa/casefind/internal/errors"
)

// HTTPEmbedder calls an external embedding service over HTTP.
// Requests are retried with bounded exponential backoff; a circuit
// breaker fails fast when the service is dead.
type HTTPEmbedder struct {
	endpoint   string
	model      string
	dimensions int
	timeout    time.Duration
	client     *http.Client
	retry      RetryConfig
	circuit    *caseerrors.CircuitBreaker
	logger     *slog.Logger
}

var _ Embedder = (*HTTPEmbedder)(nil)

// HTTPOption configures an HTTPEmbedder.
type HTTPOption func(*HTTPEmbedder)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(e *HTTPEmbedder) {
		e.timeout = d
	}
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg RetryConfig) HTTPOption {
	return func(e *HTTPEmbedder) {
		e.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(e *HTTPEmbedder) {
		e.logger = logger
	}
}

// NewHTTPEmbedder creates an embedder for the service at endpoint.
func NewHTTPEmbedder(endpoint, model string, dimensions int, opts ...HTTPOption) *HTTPEmbedder {
	e := &HTTPEmbedder{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		dimensions: dimensions,
		timeout:    DefaultTimeout,
		retry:      DefaultRetryConfig(),
		circuit:    caseerrors.NewCircuitBreaker("embedding"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client = &http.Client{Timeout: e.timeout}
	return e
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding  []float32 `json:"embedding"`
	TokensUsed int       `json:"tokens_used"`
}

// Embed generates the embedding for text. The circuit breaker wraps the
// whole retry loop so a dead service stops consuming the retry budget.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) (*Embedding, error) {
	var result *Embedding

	err := e.circuit.Execute(func() error {
		return WithRetry(ctx, e.retry, func() error {
			emb, err := e.embedOnce(ctx, text)
			if err != nil {
				e.logger.Debug("embed_attempt_failed", "model", e.model, "error", err)
				return err
			}
			result = emb
			return nil
		})
	})
	if err != nil {
		return nil, caseerrors.BackendError(caseerrors.ErrCodeEmbeddingFailed, "embedding", err)
	}
	return result, nil
}

func (e *HTTPEmbedder) embedOnce(ctx context.Context, text string) (*Embedding, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.endpoint+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embed service returned empty vector")
	}
	if e.dimensions > 0 && len(parsed.Embedding) != e.dimensions {
		return nil, fmt.Errorf("embed dimension mismatch: want %d, got %d", e.dimensions, len(parsed.Embedding))
	}

	return &Embedding{
		Vector:     normalizeVector(parsed.Embedding),
		TokensUsed: parsed.TokensUsed,
	}, nil
}

// Dimensions returns the configured embedding dimension.
func (e *HTTPEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *HTTPEmbedder) ModelName() string {
	return e.model
}

// Available checks service health with a short probe.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, e.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close releases resources.
func (e *HTTPEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
