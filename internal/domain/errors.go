package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat      = errors.New("unsupported format")
	ErrExtractionFailure      = errors.New("extraction failed")
	ErrInvalidConfiguration   = errors.New("invalid configuration")
	ErrEmbeddingUnavailable   = errors.New("embedding service unavailable")
	ErrEmbeddingService       = errors.New("embedding service error")
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
	ErrVectorStore            = errors.New("vector store error")
	ErrDuplicateID            = errors.New("duplicate id")
	ErrAutocompleteRebuild    = errors.New("autocomplete rebuild failed")

	// ErrCollectionExists is returned by store clients when a collection create hits an
	// existing collection. EnsureCollection never surfaces it.
	ErrCollectionExists = errors.New("collection already exists")

	ErrDimensionMismatch  = fmt.Errorf("%w: embedding dimension mismatch", ErrVectorStore)
	ErrCollectionNotFound = fmt.Errorf("%w: collection not found", ErrVectorStore)
)

// Stage is a step of the ingestion state machine.
type Stage string

const (
	StageReceived  Stage = "received"
	StageExtracted Stage = "extracted"
	StageChunked   Stage = "chunked"
	StageEmbedded  Stage = "embedded"
	StageStored    Stage = "stored"
	StageDone      Stage = "done"
)

// StageError reports the stage an ingest failed in. Stage is the stage that was being
// entered when the failure happened.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrDuplicateID, "DuplicateId"},
	{ErrAutocompleteRebuild, "AutocompleteRebuildFailure"},
	{ErrUnsupportedFormat, "UnsupportedFormat"},
	{ErrExtractionFailure, "ExtractionFailure"},
	{ErrInvalidConfiguration, "InvalidConfiguration"},
	{ErrEmbeddingUnavailable, "EmbeddingServiceUnavailable"},
	{ErrEmbeddingService, "EmbeddingServiceError"},
	{ErrVectorStoreUnavailable, "VectorStoreUnavailable"},
	{ErrVectorStore, "VectorStoreError"},
}

// Kind names the taxonomy entry err belongs to, or "Internal".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
