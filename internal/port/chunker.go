package port

import "semanticportal/internal/domain"

type Chunker interface {
	Split(text string, size, overlap int) ([]domain.Chunk, error)
}
