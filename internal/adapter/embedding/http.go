package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

var _ port.Embedder = (*HTTPEmbedder)(nil)

// Default configuration values.
const (
	DefaultURL       = "http://localhost:8001/embed"
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 64
)

// HTTPConfig holds configuration for the texts/vectors embedding service.
type HTTPConfig struct {
	URL       string
	Model     string
	BatchSize int
	Timeout   time.Duration

	// RequestsPerSecond limits outbound calls. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

// HTTPEmbedder calls a service that answers POST {"texts": [...]} with
// {"vectors": [[...]]}.
type HTTPEmbedder struct {
	url       string
	model     string
	batchSize int
	client    *http.Client
	limiter   *rate.Limiter
}

type textsRequest struct {
	Texts []string `json:"texts"`
}

type vectorsResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

func NewHTTPEmbedder(cfg HTTPConfig) *HTTPEmbedder {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &HTTPEmbedder{
		url:       cfg.URL,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: newLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

// Embed sends texts in batches and returns one vector per text, in order.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, e.batchSize, e.embedBatch)
}

func (e *HTTPEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := wait(ctx, e.limiter); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(textsRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrEmbeddingService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := do(e.client, req)
	if err != nil {
		return nil, err
	}

	var resp vectorsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response (body: %s): %w", domain.ErrEmbeddingService, preview(body), err)
	}

	if err := checkVectors(resp.Vectors, len(texts)); err != nil {
		return nil, err
	}
	return resp.Vectors, nil
}

func (e *HTTPEmbedder) ModelName() string {
	if e.model == "" {
		return "remote"
	}
	return e.model
}

// do sends req and returns the body of a 2xx response. Transport failures and
// gateway statuses mean the service is unavailable; anything else non-2xx is a
// service error.
func do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", domain.ErrEmbeddingUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrEmbeddingUnavailable, resp.StatusCode, preview(body))
	default:
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrEmbeddingService, resp.StatusCode, preview(body))
	}
}

func embedInBatches(ctx context.Context, texts []string, batchSize int, embed func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := embed(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}

	if err := checkVectors(all, len(texts)); err != nil {
		return nil, err
	}
	return all, nil
}

// checkVectors verifies count and that every vector shares one non-zero dimension.
func checkVectors(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbeddingService, want, len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: vector %d is empty", domain.ErrEmbeddingService, i)
		}
		if len(v) != len(vectors[0]) {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", domain.ErrEmbeddingService, i, len(v), len(vectors[0]))
		}
	}
	return nil
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

func preview(body []byte) string {
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
