package chunker

import (
	"fmt"

	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

var _ port.Chunker = (*CharChunker)(nil)

// CharChunker splits text into fixed-size character windows that overlap by a
// fixed number of characters. Characters are Unicode code points.
type CharChunker struct {
	previewLen int
}

func NewCharChunker(previewLen int) *CharChunker {
	if previewLen <= 0 {
		previewLen = 200
	}
	return &CharChunker{previewLen: previewLen}
}

// Split consumes text left to right in windows of size characters, advancing by
// size-overlap. The final window may be shorter than size.
func (c *CharChunker) Split(text string, size, overlap int) ([]domain.Chunk, error) {
	if overlap < 0 || size <= overlap {
		return nil, fmt.Errorf("%w: size %d must exceed overlap %d >= 0", domain.ErrInvalidConfiguration, size, overlap)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]domain.Chunk, 0, Count(len(runes), size, overlap))

	for start := 0; ; start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		content := string(runes[start:end])
		chunks = append(chunks, domain.Chunk{
			Content:       content,
			SequenceIndex: len(chunks),
			Preview:       Preview(content, c.previewLen),
		})

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// Count returns how many chunks Split produces for a text of length characters.
func Count(length, size, overlap int) int {
	if length == 0 {
		return 0
	}
	step := size - overlap
	rest := length - overlap
	if rest <= 0 {
		return 1
	}
	return (rest + step - 1) / step
}

// Preview returns the first n characters of s.
func Preview(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
