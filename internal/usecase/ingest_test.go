package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"semanticportal/internal/adapter/autocomplete"
	"semanticportal/internal/adapter/chunker"
	"semanticportal/internal/adapter/store"
	"semanticportal/internal/domain"
)

const testCollection = "knowledge_repo"

type ingestFixture struct {
	extractor   *fakeExtractor
	embedder    *fakeEmbedder
	store       *recordingStore
	invalidator *countingInvalidator
	uc          *IngestUseCase
}

func newIngestFixture(size, overlap int) *ingestFixture {
	f := &ingestFixture{
		extractor:   &fakeExtractor{},
		embedder:    &fakeEmbedder{},
		store:       &recordingStore{VectorStore: store.NewMemoryStore()},
		invalidator: &countingInvalidator{},
	}
	f.uc = NewIngestUseCase(
		f.extractor,
		chunker.NewCharChunker(200),
		f.embedder,
		f.store,
		IngestOptions{
			Collection:     testCollection,
			ChunkSize:      size,
			ChunkOverlap:   overlap,
			ExtractTimeout: time.Second,
			EmbedTimeout:   time.Second,
			StoreTimeout:   time.Second,
		},
		f.invalidator,
	)
	f.uc.newID = func() string { return "doc" }
	return f
}

func plainDoc(text string) domain.Document {
	return domain.Document{Name: "notes.txt", MediaType: "text/plain", Data: []byte(text)}
}

func TestIngest_ChunksAndStores(t *testing.T) {
	f := newIngestFixture(800, 200)
	text := strings.Repeat("a", 1000)

	result, err := f.uc.Ingest(context.Background(), plainDoc(text))
	if err != nil {
		t.Fatal(err)
	}
	if result.Count != 2 {
		t.Fatalf("expected 2 chunks, got %d", result.Count)
	}
	if result.IDs[0] != "doc-0" || result.IDs[1] != "doc-1" {
		t.Errorf("unexpected ids: %v", result.IDs)
	}
	if result.Source != "notes.txt" {
		t.Errorf("expected source notes.txt, got %q", result.Source)
	}

	docs, err := f.store.GetAll(context.Background(), testCollection)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 stored documents, got %d", len(docs))
	}
	if len(docs[0].Text) != 800 || len(docs[1].Text) != 400 {
		t.Errorf("expected chunk lengths 800 and 400, got %d and %d", len(docs[0].Text), len(docs[1].Text))
	}
	meta := docs[1].Metadata
	if meta[domain.MetaSequence] != "1" || meta[domain.MetaSource] != "notes.txt" || meta[domain.MetaMediaType] != "text/plain" {
		t.Errorf("unexpected metadata: %v", meta)
	}
	if len([]rune(meta[domain.MetaPreview])) != 200 {
		t.Errorf("expected 200 character preview, got %d", len([]rune(meta[domain.MetaPreview])))
	}
	if _, err := time.Parse(time.RFC3339, meta[domain.MetaIngestedAt]); err != nil {
		t.Errorf("expected RFC3339 ingested_at, got %q", meta[domain.MetaIngestedAt])
	}

	calls := f.store.Calls()
	if len(calls) != 2 || calls[0] != "ensure" || calls[1] != "add" {
		t.Errorf("expected ensure then a single add, got %v", calls)
	}
	if f.invalidator.Count() != 1 {
		t.Errorf("expected 1 invalidation, got %d", f.invalidator.Count())
	}
	if !f.embedder.deadline {
		t.Error("expected embedding to run under a deadline")
	}
}

func TestIngest_StageFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *ingestFixture)
		size      int
		overlap   int
		wantStage domain.Stage
		wantErr   error
		wantCalls int
	}{
		{
			name:      "unsupported format",
			setup:     func(f *ingestFixture) { f.extractor.err = domain.ErrUnsupportedFormat },
			size:      800,
			overlap:   200,
			wantStage: domain.StageExtracted,
			wantErr:   domain.ErrUnsupportedFormat,
		},
		{
			name:      "extraction failure",
			setup:     func(f *ingestFixture) { f.extractor.err = domain.ErrExtractionFailure },
			size:      800,
			overlap:   200,
			wantStage: domain.StageExtracted,
			wantErr:   domain.ErrExtractionFailure,
		},
		{
			name:      "invalid chunk configuration",
			setup:     func(f *ingestFixture) {},
			size:      100,
			overlap:   100,
			wantStage: domain.StageChunked,
			wantErr:   domain.ErrInvalidConfiguration,
		},
		{
			name:      "embedding unavailable",
			setup:     func(f *ingestFixture) { f.embedder.err = domain.ErrEmbeddingUnavailable },
			size:      800,
			overlap:   200,
			wantStage: domain.StageEmbedded,
			wantErr:   domain.ErrEmbeddingUnavailable,
		},
		{
			name:      "embedding count mismatch",
			setup:     func(f *ingestFixture) { f.embedder.short = true },
			size:      800,
			overlap:   200,
			wantStage: domain.StageEmbedded,
			wantErr:   domain.ErrEmbeddingService,
		},
		{
			name:      "store unavailable",
			setup:     func(f *ingestFixture) { f.store.addErr = domain.ErrVectorStoreUnavailable },
			size:      800,
			overlap:   200,
			wantStage: domain.StageStored,
			wantErr:   domain.ErrVectorStoreUnavailable,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(tt.size, tt.overlap)
			tt.setup(f)

			result, err := f.uc.Ingest(context.Background(), plainDoc(strings.Repeat("b", 1000)))
			if result != nil {
				t.Errorf("expected no result, got %+v", result)
			}

			var se *domain.StageError
			if !errors.As(err, &se) {
				t.Fatalf("expected StageError, got %v", err)
			}
			if se.Stage != tt.wantStage {
				t.Errorf("expected stage %s, got %s", tt.wantStage, se.Stage)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if got := len(f.store.Calls()); got != tt.wantCalls {
				t.Errorf("expected %d store calls, got %d", tt.wantCalls, got)
			}
			if f.invalidator.Count() != 0 {
				t.Error("expected no invalidation on failure")
			}
		})
	}
}

func TestIngest_EmptyText(t *testing.T) {
	f := newIngestFixture(800, 200)

	result, err := f.uc.Ingest(context.Background(), plainDoc(""))
	if err != nil {
		t.Fatal(err)
	}
	if result.Count != 0 || len(result.IDs) != 0 {
		t.Errorf("expected zero chunks, got %+v", result)
	}
	if f.embedder.calls != 0 {
		t.Errorf("expected no embedding call, got %d", f.embedder.calls)
	}
	if len(f.store.Calls()) != 0 {
		t.Errorf("expected no store calls, got %v", f.store.Calls())
	}
}

func TestIngest_InvalidatesAutocomplete(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()
	if err := mem.EnsureCollection(ctx, testCollection); err != nil {
		t.Fatal(err)
	}

	cache := autocomplete.NewCache(func(ctx context.Context) ([]domain.StoredDocument, error) {
		return mem.GetAll(ctx, testCollection)
	}, autocomplete.DefaultThreshold, time.Second)
	suggest := NewSuggestUseCase(cache, 5)

	uc := NewIngestUseCase(
		&fakeExtractor{},
		chunker.NewCharChunker(200),
		&fakeEmbedder{},
		mem,
		IngestOptions{Collection: testCollection, ChunkSize: 800, ChunkOverlap: 200},
		suggest,
	)

	before, err := suggest.Suggest(ctx, "zebra")
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 0 {
		t.Fatalf("expected no suggestions before ingest, got %v", before)
	}

	if _, err := uc.Ingest(ctx, plainDoc("zebra crossings are striped")); err != nil {
		t.Fatal(err)
	}

	after, err := suggest.Suggest(ctx, "zebra")
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 1 || after[0] != "zebra crossings are striped" {
		t.Errorf("expected fresh suggestion after ingest, got %v", after)
	}
	if cache.Builds() != 2 {
		t.Errorf("expected 2 builds, got %d", cache.Builds())
	}
}

func TestIngest_ConcurrentIDsDistinct(t *testing.T) {
	mem := store.NewMemoryStore()
	uc := NewIngestUseCase(
		&fakeExtractor{},
		chunker.NewCharChunker(200),
		&fakeEmbedder{},
		mem,
		IngestOptions{Collection: testCollection, ChunkSize: 10, ChunkOverlap: 2},
	)

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := uc.Ingest(context.Background(), plainDoc("concurrent ingest text body"))
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("expected concurrent ingests to succeed, got %v", err)
		}
	}

	docs, err := mem.GetAll(context.Background(), testCollection)
	if err != nil {
		t.Fatal(err)
	}
	perIngest := chunker.Count(len("concurrent ingest text body"), 10, 2)
	if len(docs) != n*perIngest {
		t.Errorf("expected %d entries, got %d", n*perIngest, len(docs))
	}
}
