package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultTesseractPath is looked up on PATH.
const DefaultTesseractPath = "tesseract"

// TesseractRecognizer runs the tesseract CLI, streaming the image on stdin
// and reading the text from stdout.
type TesseractRecognizer struct {
	path   string
	args   []string
	logger *slog.Logger
}

// NewTesseractRecognizer creates a TesseractRecognizer. Extra args (for
// example "-l", "eng+fra") are appended after the input and output operands.
func NewTesseractRecognizer(path string, logger *slog.Logger, args ...string) *TesseractRecognizer {
	if path == "" {
		path = DefaultTesseractPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractRecognizer{
		path:   path,
		args:   args,
		logger: logger,
	}
}

// Recognize implements Recognizer. The mime type is not needed; tesseract
// sniffs the format itself.
func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte, _ string) (string, error) {
	args := append([]string{"stdin", "stdout"}, t.args...)
	cmd := exec.CommandContext(ctx, t.path, args...)
	cmd.Stdin = bytes.NewReader(image)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}

	t.logger.Debug("OCR complete", "engine", EngineTesseract, "bytes", len(image), "chars", stdout.Len())
	return strings.TrimSpace(stdout.String()), nil
}
