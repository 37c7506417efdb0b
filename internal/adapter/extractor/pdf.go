package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"semanticportal/internal/port"
)

var _ port.PDFReader = (*PDFReader)(nil)

// PDFReader extracts the text layer of a PDF in process.
type PDFReader struct{}

func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

// ReadText returns the plain text of every page. The parse runs in its own
// goroutine so a cancelled ctx returns immediately.
func (p *PDFReader) ReadText(ctx context.Context, data []byte) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := readPDF(data)
		ch <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.text, res.err
	}
}

func readPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read text layer: %w", err)
	}

	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read text layer: %w", err)
	}
	return string(b), nil
}
