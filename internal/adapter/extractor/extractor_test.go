package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"semanticportal/internal/domain"
)

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) Recognize(_ context.Context, _ []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakePDF struct {
	text  string
	err   error
	calls int
}

func (f *fakePDF) ReadText(_ context.Context, _ []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
	stdin  []byte
}

func (m *mockRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	m.stdin, m.name, m.args = stdin, name, args
	return m.output, m.err
}

func defaultOptions() Options {
	return Options{RejectTypes: []string{"application/zip", "application/octet-stream"}}
}

func TestRouter_Routing(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		data      string
		want      string
		wantOCR   int
		wantPDF   int
	}{
		{"png goes to ocr", "image/png", "\x89PNG", "ocr text", 1, 0},
		{"jpeg with params goes to ocr", "image/jpeg; q=1", "\xff\xd8", "ocr text", 1, 0},
		{"pdf goes to pdf reader", "application/pdf", "%PDF-1.4", "pdf text", 0, 1},
		{"uppercase pdf", "Application/PDF", "%PDF-1.4", "pdf text", 0, 1},
		{"plain text decoded", "text/plain; charset=utf-8", "hello world", "hello world", 0, 0},
		{"json decoded", "application/json", `{"a":1}`, `{"a":1}`, 0, 0},
		{"markdown raw by default", "text/markdown", "# Title", "# Title", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ocr := &fakeOCR{text: "ocr text"}
			pdf := &fakePDF{text: "pdf text"}
			r := NewRouter(ocr, pdf, defaultOptions())

			got, err := r.Extract(context.Background(), []byte(tt.data), tt.mediaType)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if ocr.calls != tt.wantOCR || pdf.calls != tt.wantPDF {
				t.Errorf("expected ocr=%d pdf=%d calls, got ocr=%d pdf=%d", tt.wantOCR, tt.wantPDF, ocr.calls, pdf.calls)
			}
		})
	}
}

func TestRouter_UnsupportedFormat(t *testing.T) {
	r := NewRouter(&fakeOCR{}, &fakePDF{}, defaultOptions())

	for _, mt := range []string{"application/zip", "", "not a media type;;", "application/octet-stream"} {
		_, err := r.Extract(context.Background(), []byte("PK\x03\x04"), mt)
		if !errors.Is(err, domain.ErrUnsupportedFormat) {
			t.Errorf("%q: expected ErrUnsupportedFormat, got %v", mt, err)
		}
	}
}

func TestRouter_ExtractionFailure(t *testing.T) {
	convErr := errors.New("corrupt xref table")
	r := NewRouter(&fakeOCR{}, &fakePDF{err: convErr}, defaultOptions())

	_, err := r.Extract(context.Background(), []byte("plain text really"), "application/pdf")
	if !errors.Is(err, domain.ErrExtractionFailure) {
		t.Errorf("expected ErrExtractionFailure, got %v", err)
	}
	if !errors.Is(err, convErr) {
		t.Errorf("expected converter error to be wrapped, got %v", err)
	}
}

func TestRouter_FallbackToRaw(t *testing.T) {
	opts := defaultOptions()
	opts.FallbackToRaw = true
	r := NewRouter(&fakeOCR{err: errors.New("not an image")}, &fakePDF{err: errors.New("no header")}, opts)

	got, err := r.Extract(context.Background(), []byte("actually text"), "application/pdf")
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	if got != "actually text" {
		t.Errorf("expected raw text, got %q", got)
	}

	_, err = r.Extract(context.Background(), []byte{0xff, 0xfe, 0x00}, "image/png")
	if !errors.Is(err, domain.ErrExtractionFailure) {
		t.Errorf("expected invalid UTF-8 to still fail, got %v", err)
	}
}

func TestRouter_RenderMarkdown(t *testing.T) {
	opts := defaultOptions()
	opts.RenderMarkdown = true
	r := NewRouter(&fakeOCR{}, &fakePDF{}, opts)

	got, err := r.Extract(context.Background(), []byte("# Title\n\nSome *emphasis* here."), "text/markdown")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Title\nSome emphasis here." {
		t.Errorf("expected rendered text, got %q", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	src := "# Guide\n\nIntro line one\nline two.\n\n- item one\n- item two\n\n```go\nfmt.Println(1)\n```\n"
	got := RenderMarkdown([]byte(src))

	for _, want := range []string{"Guide", "Intro line one line two.", "item one", "item two", "fmt.Println(1)"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in rendered text, got %q", want, got)
		}
	}
	if strings.ContainsAny(got, "#`*") {
		t.Errorf("expected markup removed, got %q", got)
	}
}

func TestDecodeText(t *testing.T) {
	if got := DecodeText([]byte("\xef\xbb\xbfhello")); got != "hello" {
		t.Errorf("expected BOM stripped, got %q", got)
	}
	if got := DecodeText([]byte("a\xffb")); got != "a�b" {
		t.Errorf("expected invalid byte replaced, got %q", got)
	}
}

func TestTesseractOCR(t *testing.T) {
	runner := &mockRunner{output: []byte("  recognized text\n")}
	ocr := NewTesseractOCR(runner, "", "eng+deu")

	got, err := ocr.Recognize(context.Background(), []byte("image-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "recognized text" {
		t.Errorf("expected trimmed output, got %q", got)
	}
	if runner.name != "tesseract" {
		t.Errorf("expected tesseract, got %s", runner.name)
	}
	if strings.Join(runner.args, " ") != "stdin stdout -l eng+deu" {
		t.Errorf("unexpected args %v", runner.args)
	}
	if string(runner.stdin) != "image-bytes" {
		t.Errorf("expected image on stdin, got %q", runner.stdin)
	}
}

func TestTesseractOCR_Errors(t *testing.T) {
	ocr := NewTesseractOCR(&mockRunner{err: errors.New("exit status 1")}, "tesseract", "eng")
	if _, err := ocr.Recognize(context.Background(), []byte("x")); err == nil {
		t.Error("expected runner error to surface")
	}
	if _, err := ocr.Recognize(context.Background(), nil); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestPDFReader_Corrupt(t *testing.T) {
	_, err := NewPDFReader().ReadText(context.Background(), []byte("definitely not a pdf"))
	if err == nil {
		t.Error("expected error for corrupt pdf")
	}
}

func TestPDFReader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFReader().ReadText(ctx, []byte("%PDF-1.4"))
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}
