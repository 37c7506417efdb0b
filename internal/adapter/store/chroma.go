package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

var _ port.VectorStore = (*ChromaStore)(nil)

// Default configuration values.
const (
	DefaultChromaURL     = "http://localhost:8002"
	DefaultChromaTimeout = 15 * time.Second
)

// ChromaConfig holds configuration for the HTTP vector store client.
type ChromaConfig struct {
	URL     string
	Timeout time.Duration
}

// ChromaStore is a thin client for a Chroma-style REST API addressing
// collections by name.
type ChromaStore struct {
	baseURL string
	client  *http.Client
}

type createCollectionRequest struct {
	Name string `json:"name"`
}

type addRequest struct {
	IDs        []string            `json:"ids"`
	Embeddings [][]float32         `json:"embeddings"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas"`
}

type queryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]*string        `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

type getRequest struct {
	Include []string `json:"include"`
}

type getResponse struct {
	IDs       []string         `json:"ids"`
	Documents []*string        `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

// apiError is a non-2xx answer from the store.
type apiError struct {
	status int
	body   string
	kind   error
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", e.kind, e.status, e.body)
}

func (e *apiError) Unwrap() error {
	return e.kind
}

func NewChromaStore(cfg ChromaConfig) *ChromaStore {
	if cfg.URL == "" {
		cfg.URL = DefaultChromaURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChromaTimeout
	}
	return &ChromaStore{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// EnsureCollection creates the collection. An "already exists" answer counts
// as success; every other failure is returned.
func (s *ChromaStore) EnsureCollection(ctx context.Context, name string) error {
	err := s.post(ctx, "/collections", createCollectionRequest{Name: name}, nil)
	if err == nil {
		return nil
	}

	var ae *apiError
	if errors.As(err, &ae) && ae.kind == domain.ErrVectorStore &&
		(ae.status == http.StatusConflict || strings.Contains(strings.ToLower(ae.body), "already exists")) {
		return nil
	}
	return err
}

func (s *ChromaStore) Add(ctx context.Context, collection string, entries []domain.IndexedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	req := addRequest{
		IDs:        make([]string, len(entries)),
		Embeddings: make([][]float32, len(entries)),
		Documents:  make([]string, len(entries)),
		Metadatas:  make([]map[string]string, len(entries)),
	}
	for i, e := range entries {
		req.IDs[i] = e.ID
		req.Embeddings[i] = e.Embedding
		req.Documents[i] = e.Text
		req.Metadatas[i] = e.Metadata
	}

	err := s.post(ctx, collectionPath(collection, "add"), req, nil)
	var ae *apiError
	if errors.As(err, &ae) && ae.kind == domain.ErrVectorStore && isDuplicate(ae) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, ae.body)
	}
	return err
}

func (s *ChromaStore) Query(ctx context.Context, collection string, vector []float32, topK int) ([]domain.QueryHit, error) {
	req := queryRequest{
		QueryEmbeddings: [][]float32{vector},
		NResults:        topK,
		Include:         []string{"documents", "metadatas", "distances"},
	}

	var resp queryResponse
	if err := s.post(ctx, collectionPath(collection, "query"), req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Distances) == 0 {
		return nil, nil
	}
	distances := resp.Distances[0]
	if len(resp.Documents) == 0 || len(resp.Documents[0]) != len(distances) {
		return nil, fmt.Errorf("%w: query response documents and distances differ in length", domain.ErrVectorStore)
	}

	hits := make([]domain.QueryHit, 0, len(distances))
	for i, d := range distances {
		hit := domain.QueryHit{Distance: d}
		if doc := resp.Documents[0][i]; doc != nil {
			hit.Text = *doc
		}
		if len(resp.IDs) > 0 && i < len(resp.IDs[0]) {
			hit.ID = resp.IDs[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			hit.Metadata = stringify(resp.Metadatas[0][i])
		}
		hits = append(hits, hit)
	}

	if topK >= 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *ChromaStore) GetAll(ctx context.Context, collection string) ([]domain.StoredDocument, error) {
	var resp getResponse
	if err := s.post(ctx, collectionPath(collection, "get"), getRequest{Include: []string{"documents", "metadatas"}}, &resp); err != nil {
		return nil, err
	}

	docs := make([]domain.StoredDocument, len(resp.Documents))
	for i, doc := range resp.Documents {
		if doc != nil {
			docs[i].Text = *doc
		}
		if i < len(resp.IDs) {
			docs[i].ID = resp.IDs[i]
		}
		if i < len(resp.Metadatas) {
			docs[i].Metadata = stringify(resp.Metadatas[i])
		}
	}
	return docs, nil
}

func (s *ChromaStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// post sends a JSON body and decodes a 2xx answer into out. Transport failures
// and gateway statuses are reported as unavailability.
func (s *ChromaStore) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", domain.ErrVectorStore, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", domain.ErrVectorStoreUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", domain.ErrVectorStoreUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		return &apiError{status: resp.StatusCode, body: preview(body), kind: domain.ErrCollectionNotFound}
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return &apiError{status: resp.StatusCode, body: preview(body), kind: domain.ErrVectorStoreUnavailable}
	default:
		return &apiError{status: resp.StatusCode, body: preview(body), kind: domain.ErrVectorStore}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to parse response (body: %s): %w", domain.ErrVectorStore, preview(body), err)
	}
	return nil
}

func collectionPath(name, op string) string {
	return "/collections/" + url.PathEscape(name) + "/" + op
}

func isDuplicate(ae *apiError) bool {
	if ae.status == http.StatusConflict {
		return true
	}
	body := strings.ToLower(ae.body)
	return strings.Contains(body, "duplicate") || strings.Contains(body, "already exist")
}

func stringify(m map[string]any) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func preview(body []byte) string {
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
