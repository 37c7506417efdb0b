package extractor

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"semanticportal/internal/domain"
	"semanticportal/internal/logger"
	"semanticportal/internal/port"
)

var _ port.TextExtractor = (*Router)(nil)

// Options control how declared media types are routed.
type Options struct {
	// FallbackToRaw decodes a buffer as text when its declared PDF or image
	// converter fails and the buffer is valid UTF-8.
	FallbackToRaw bool

	// RenderMarkdown reduces text/markdown to its text content.
	RenderMarkdown bool

	// RejectTypes are media types refused outright instead of raw-decoded.
	RejectTypes []string
}

// Router picks a converter by declared media type: images go to OCR, PDFs to
// the PDF reader, everything else is decoded as UTF-8. The media type is
// trusted, never sniffed.
type Router struct {
	ocr    port.OCR
	pdf    port.PDFReader
	opts   Options
	reject map[string]struct{}
}

func NewRouter(ocr port.OCR, pdf port.PDFReader, opts Options) *Router {
	reject := make(map[string]struct{}, len(opts.RejectTypes))
	for _, t := range opts.RejectTypes {
		reject[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Router{
		ocr:    ocr,
		pdf:    pdf,
		opts:   opts,
		reject: reject,
	}
}

func (r *Router) Extract(ctx context.Context, data []byte, mediaType string) (string, error) {
	mt, err := baseType(mediaType)
	if err != nil {
		return "", err
	}
	if _, ok := r.reject[mt]; ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, mt)
	}

	switch {
	case strings.HasPrefix(mt, "image/"):
		text, err := r.ocr.Recognize(ctx, data)
		return r.fallback(mt, data, text, err)
	case mt == "application/pdf":
		text, err := r.pdf.ReadText(ctx, data)
		return r.fallback(mt, data, text, err)
	case mt == "text/markdown" && r.opts.RenderMarkdown:
		return RenderMarkdown(data), nil
	default:
		return DecodeText(data), nil
	}
}

func (r *Router) fallback(mt string, data []byte, text string, err error) (string, error) {
	if err == nil {
		return text, nil
	}
	if r.opts.FallbackToRaw && utf8.Valid(data) {
		logger.Warn("converter failed, decoding as text", "media_type", mt, "error", err)
		return DecodeText(data), nil
	}
	return "", fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailure, mt, err)
}

// baseType lowercases mediaType and strips its parameters.
func baseType(mediaType string) (string, error) {
	if strings.TrimSpace(mediaType) == "" {
		return "", fmt.Errorf("%w: missing media type", domain.ErrUnsupportedFormat)
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", domain.ErrUnsupportedFormat, mediaType, err)
	}
	return mt, nil
}

// DecodeText decodes data as UTF-8, dropping a byte order mark and replacing
// invalid sequences.
func DecodeText(data []byte) string {
	s := strings.TrimPrefix(string(data), "\uFEFF")
	return strings.ToValidUTF8(s, "\uFFFD")
}
