package extract

import (
	"context"
	"errors"
	"fmt"
)

// Format identifies how a file's text is extracted.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatImage Format = "image"
	FormatText  Format = "text"
)

// ErrNoRecognizer is returned for images when no OCR engine is configured.
var ErrNoRecognizer = errors.New("no OCR recognizer configured")

// DecodeError reports file content that could not be parsed for its format.
type DecodeError struct {
	Filename string
	Format   Format
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s as %s: %v", e.Filename, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is, or wraps, a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}
