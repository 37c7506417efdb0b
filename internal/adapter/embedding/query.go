package embedding

import (
	"context"
	"fmt"

	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

// EmbedQuery embeds a single text. The text is sent as given, empty included;
// anything but exactly one non-empty vector is a service error.
func EmbedQuery(ctx context.Context, e port.Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", domain.ErrEmbeddingService, len(vectors))
	}
	if len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrEmbeddingService)
	}
	return vectors[0], nil
}
