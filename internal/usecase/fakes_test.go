package usecase

import (
	"context"
	"strings"
	"sync"

	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.text != "" {
		return f.text, nil
	}
	return string(data), nil
}

// fakeEmbedder maps each text to a 3-dimensional vector derived from its
// first letter, so that queries can target a chunk.
type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	err      error
	short    bool
	deadline bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	_, f.deadline = ctx.Deadline()
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = letterVector(texts[i])
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake" }

func letterVector(text string) []float32 {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(t, "a"):
		return []float32{1, 0, 0}
	case strings.HasPrefix(t, "b"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

// recordingStore wraps a store and records the order of calls.
type recordingStore struct {
	port.VectorStore
	mu     sync.Mutex
	calls  []string
	addErr error
	qErr   error
}

func (s *recordingStore) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *recordingStore) EnsureCollection(ctx context.Context, name string) error {
	s.record("ensure")
	return s.VectorStore.EnsureCollection(ctx, name)
}

func (s *recordingStore) Add(ctx context.Context, collection string, entries []domain.IndexedEntry) error {
	s.record("add")
	if s.addErr != nil {
		return s.addErr
	}
	return s.VectorStore.Add(ctx, collection, entries)
}

func (s *recordingStore) Query(ctx context.Context, collection string, vector []float32, topK int) ([]domain.QueryHit, error) {
	s.record("query")
	if s.qErr != nil {
		return nil, s.qErr
	}
	return s.VectorStore.Query(ctx, collection, vector, topK)
}

func (s *recordingStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type countingInvalidator struct {
	mu    sync.Mutex
	count int
}

func (c *countingInvalidator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *countingInvalidator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
