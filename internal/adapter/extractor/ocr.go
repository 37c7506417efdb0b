package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"semanticportal/internal/port"
)

var (
	_ port.OCR           = (*TesseractOCR)(nil)
	_ port.CommandRunner = (*ExecRunner)(nil)
)

// TesseractOCR runs the tesseract CLI with the image on stdin and reads the
// recognized text from stdout.
type TesseractOCR struct {
	runner    port.CommandRunner
	command   string
	languages string
}

func NewTesseractOCR(runner port.CommandRunner, command, languages string) *TesseractOCR {
	if runner == nil {
		runner = ExecRunner{}
	}
	if command == "" {
		command = "tesseract"
	}
	if languages == "" {
		languages = "eng"
	}
	return &TesseractOCR{
		runner:    runner,
		command:   command,
		languages: languages,
	}
}

func (o *TesseractOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("empty image")
	}
	out, err := o.runner.Run(ctx, image, o.command, "stdin", "stdout", "-l", o.languages)
	if err != nil {
		return "", fmt.Errorf("%s: %w", o.command, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s not found in PATH: %w", name, err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
