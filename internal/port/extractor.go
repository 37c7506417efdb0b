package port

import "context"

// TextExtractor turns an uploaded buffer into plain text according to its
// declared media type.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mediaType string) (string, error)
}

// OCR recognizes text in an image buffer.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// PDFReader extracts the text layer of a PDF buffer.
type PDFReader interface {
	ReadText(ctx context.Context, data []byte) (string, error)
}

// CommandRunner executes an external program with the given stdin.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}
