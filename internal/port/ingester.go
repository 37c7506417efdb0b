package port

import (
	"context"

	"semanticportal/internal/domain"
)

// Ingester runs one document through the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, doc domain.Document) (*domain.IngestResult, error)
}
