package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"semanticportal/internal/domain"
)

// echoServer answers each text with a vector whose first element is the
// text's length and second the index of the request that carried it.
func echoServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req textsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		vectors := make([][]float32, len(req.Texts))
		for i, text := range req.Texts {
			vectors[i] = []float32{float32(len(text)), float32(n)}
		}
		json.NewEncoder(w).Encode(vectorsResponse{Vectors: vectors})
	}))
}

func TestHTTPEmbedder_OrderPreserved(t *testing.T) {
	var requests atomic.Int32
	srv := echoServer(t, &requests)
	defer srv.Close()

	emb := NewHTTPEmbedder(HTTPConfig{URL: srv.URL, BatchSize: 2})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := emb.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if int(v[0]) != len(texts[i]) {
			t.Errorf("vector %d belongs to a different text: %v", i, v)
		}
	}
	if requests.Load() != 3 {
		t.Errorf("expected 3 batched requests, got %d", requests.Load())
	}
}

func TestHTTPEmbedder_EmptyInput(t *testing.T) {
	var requests atomic.Int32
	srv := echoServer(t, &requests)
	defer srv.Close()

	emb := NewHTTPEmbedder(HTTPConfig{URL: srv.URL})
	vectors, err := emb.Embed(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 0 || requests.Load() != 0 {
		t.Errorf("expected no call for empty input, got %d vectors and %d requests", len(vectors), requests.Load())
	}
}

func TestHTTPEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "texts must not be empty", http.StatusBadRequest)
			},
			want: domain.ErrEmbeddingService,
		},
		{
			name: "service unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model loading", http.StatusServiceUnavailable)
			},
			want: domain.ErrEmbeddingUnavailable,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"vectors": "nope"`))
			},
			want: domain.ErrEmbeddingService,
		},
		{
			name: "count mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"vectors": [[0.1, 0.2]]}`))
			},
			want: domain.ErrEmbeddingService,
		},
		{
			name: "ragged vectors",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"vectors": [[0.1, 0.2], [0.3]]}`))
			},
			want: domain.ErrEmbeddingService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			emb := NewHTTPEmbedder(HTTPConfig{URL: srv.URL})
			_, err := emb.Embed(context.Background(), []string{"one", "two"})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHTTPEmbedder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	emb := NewHTTPEmbedder(HTTPConfig{URL: url, Timeout: time.Second})
	_, err := emb.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestHTTPEmbedder_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	emb := NewHTTPEmbedder(HTTPConfig{URL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := emb.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable on timeout, got %v", err)
	}
}

func TestHTTPEmbedder_RateLimit(t *testing.T) {
	var requests atomic.Int32
	srv := echoServer(t, &requests)
	defer srv.Close()

	emb := NewHTTPEmbedder(HTTPConfig{URL: srv.URL, BatchSize: 1, RequestsPerSecond: 20, Burst: 1})

	start := time.Now()
	if _, err := emb.Embed(context.Background(), []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected rate limit to space 3 requests, took %s", elapsed)
	}
}

func TestOpenAIEmbedder_PlacesByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer ollama" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"data": [
			{"index": 1, "embedding": [2, 2]},
			{"index": 0, "embedding": [1, 1]}
		]}`))
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder("all-minilm", srv.URL, time.Second)
	vectors, err := emb.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if vectors[0][0] != 1 || vectors[1][0] != 2 {
		t.Errorf("expected vectors placed by index, got %v", vectors)
	}
}

func TestOpenAIEmbedder_MissingKey(t *testing.T) {
	t.Setenv("PORTAL_TEST_MISSING_KEY", "")
	_, err := NewOpenAIEmbedder("PORTAL_TEST_MISSING_KEY", "text-embedding-3-small", time.Second)
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestMockEmbedder(t *testing.T) {
	emb := NewMockEmbedder(64)

	a, _ := emb.Embed(context.Background(), []string{"vector search engines", "vector search engines"})
	if len(a[0]) != 64 {
		t.Fatalf("expected dimension 64, got %d", len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != a[1][i] {
			t.Fatal("expected identical text to embed identically")
		}
	}

	empty, _ := emb.Embed(context.Background(), []string{""})
	if empty[0][0] != 1 {
		t.Errorf("expected unit vector for empty text, got %v", empty[0][:4])
	}
}
