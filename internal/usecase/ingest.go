package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/ksuid"

	"semanticportal/internal/domain"
	"semanticportal/internal/logger"
	"semanticportal/internal/port"
)

var _ port.Ingester = (*IngestUseCase)(nil)

// IngestOptions configures the ingestion pipeline.
type IngestOptions struct {
	Collection     string
	ChunkSize      int
	ChunkOverlap   int
	ExtractTimeout time.Duration
	EmbedTimeout   time.Duration
	StoreTimeout   time.Duration
}

// IngestUseCase drives a document through extraction, chunking, embedding and
// storage. Each call is independent; concurrent ingests are not serialized.
type IngestUseCase struct {
	extractor    port.TextExtractor
	chunker      port.Chunker
	embedder     port.Embedder
	store        port.VectorStore
	invalidators []port.Invalidator
	opts         IngestOptions

	newID func() string
	now   func() time.Time
}

// NewIngestUseCase creates a new ingest use case. Every invalidator is reset
// after a successful ingest.
func NewIngestUseCase(
	extractor port.TextExtractor,
	chunker port.Chunker,
	embedder port.Embedder,
	store port.VectorStore,
	opts IngestOptions,
	invalidators ...port.Invalidator,
) *IngestUseCase {
	return &IngestUseCase{
		extractor:    extractor,
		chunker:      chunker,
		embedder:     embedder,
		store:        store,
		invalidators: invalidators,
		opts:         opts,
		newID:        func() string { return ksuid.New().String() },
		now:          time.Now,
	}
}

// Ingest runs the pipeline for one document. A failure is returned as a
// *domain.StageError naming the stage that could not be reached; nothing is
// written to the store unless every earlier stage succeeded.
func (u *IngestUseCase) Ingest(ctx context.Context, doc domain.Document) (*domain.IngestResult, error) {
	start := u.now()
	log := logger.With("source", doc.Name, "media_type", doc.MediaType)
	log.Debug("ingest received", "stage", domain.StageReceived, "bytes", len(doc.Data))

	fail := func(stage domain.Stage, err error) (*domain.IngestResult, error) {
		log.Warn("ingest failed", "stage", stage, "error", domain.Kind(err), "err", err)
		return nil, &domain.StageError{Stage: stage, Err: err}
	}

	// Extracted
	t := u.now()
	text, err := u.extract(ctx, doc)
	if err != nil {
		return fail(domain.StageExtracted, err)
	}
	log.Debug("ingest stage", "stage", domain.StageExtracted, "dur_ms", u.since(t), "chars", len([]rune(text)))

	// Chunked
	t = u.now()
	chunks, err := u.chunker.Split(text, u.opts.ChunkSize, u.opts.ChunkOverlap)
	if err != nil {
		return fail(domain.StageChunked, err)
	}
	log.Debug("ingest stage", "stage", domain.StageChunked, "dur_ms", u.since(t), "count", len(chunks))

	// Embedded
	t = u.now()
	vectors, err := u.embed(ctx, chunks)
	if err != nil {
		return fail(domain.StageEmbedded, err)
	}
	log.Debug("ingest stage", "stage", domain.StageEmbedded, "dur_ms", u.since(t), "count", len(vectors))

	// Stored
	t = u.now()
	entries := u.entries(doc, chunks, vectors)
	if err := u.storeEntries(ctx, entries); err != nil {
		return fail(domain.StageStored, err)
	}
	log.Debug("ingest stage", "stage", domain.StageStored, "dur_ms", u.since(t), "count", len(entries))

	for _, inv := range u.invalidators {
		inv.Invalidate()
	}

	result := &domain.IngestResult{
		Source:   doc.Name,
		Count:    len(entries),
		IDs:      make([]string, len(entries)),
		Duration: u.now().Sub(start),
	}
	for i, e := range entries {
		result.IDs[i] = e.ID
	}
	log.Info("ingest done", "stage", domain.StageDone, "count", result.Count, "dur_ms", result.Duration.Milliseconds())
	return result, nil
}

func (u *IngestUseCase) extract(ctx context.Context, doc domain.Document) (string, error) {
	ctx, cancel := withTimeout(ctx, u.opts.ExtractTimeout)
	defer cancel()
	return u.extractor.Extract(ctx, doc.Data, doc.MediaType)
}

// embed asks for one vector per chunk and checks the answer's shape. Zero
// chunks skip the call.
func (u *IngestUseCase) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	ctx, cancel := withTimeout(ctx, u.opts.EmbedTimeout)
	defer cancel()
	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbeddingService, len(chunks), len(vectors))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", domain.ErrEmbeddingService, i, len(v), dim)
		}
	}
	return vectors, nil
}

func (u *IngestUseCase) entries(doc domain.Document, chunks []domain.Chunk, vectors [][]float32) []domain.IndexedEntry {
	if len(chunks) == 0 {
		return nil
	}

	base := u.newID()
	ingestedAt := u.now().UTC().Format(time.RFC3339)
	entries := make([]domain.IndexedEntry, len(chunks))
	for i, c := range chunks {
		seq := strconv.Itoa(c.SequenceIndex)
		entries[i] = domain.IndexedEntry{
			ID:        base + "-" + seq,
			Embedding: vectors[i],
			Text:      c.Content,
			Metadata: map[string]string{
				domain.MetaPreview:    c.Preview,
				domain.MetaSource:     doc.Name,
				domain.MetaMediaType:  doc.MediaType,
				domain.MetaSequence:   seq,
				domain.MetaIngestedAt: ingestedAt,
			},
		}
	}
	return entries
}

// storeEntries makes sure the collection exists and writes all entries in one
// call. Zero entries skip the store.
func (u *IngestUseCase) storeEntries(ctx context.Context, entries []domain.IndexedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx, u.opts.StoreTimeout)
	defer cancel()

	if err := u.store.EnsureCollection(ctx, u.opts.Collection); err != nil {
		return err
	}
	return u.store.Add(ctx, u.opts.Collection, entries)
}

func (u *IngestUseCase) since(t time.Time) int64 {
	return u.now().Sub(t).Milliseconds()
}

// withTimeout applies d when positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
