// Package extract converts uploaded files into ordered page texts.
//
// Supported formats, chosen by file extension (case-insensitive):
//   - .pdf              one text per page, in page order
//   - .png, .jpg, .jpeg a single page produced by OCR
//   - anything else     plain UTF-8 text, a single page
package extract

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
)

// Extractor dispatches extraction by detected format.
type Extractor struct {
	recognizer Recognizer
	logger     *slog.Logger
}

// New creates an Extractor. recognizer may be nil, in which case image
// uploads fail with ErrNoRecognizer.
func New(recognizer Recognizer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		recognizer: recognizer,
		logger:     logger,
	}
}

// Detect returns the extraction format for filename.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".png", ".jpg", ".jpeg":
		return FormatImage
	default:
		return FormatText
	}
}

// Extract returns the page texts of a file. Malformed content yields a
// *DecodeError carrying the filename.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) ([]string, error) {
	format := Detect(filename)

	var (
		pages []string
		err   error
	)
	switch format {
	case FormatPDF:
		pages, err = extractPDF(data)
	case FormatImage:
		var text string
		text, err = e.extractImage(ctx, data)
		pages = []string{text}
	default:
		var text string
		text, err = extractText(data)
		pages = []string{text}
	}
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Filename = filename
			de.Format = format
		}
		return nil, err
	}

	e.logger.Debug("Extracted document", "filename", filename, "format", format, "pages", len(pages))
	return pages, nil
}
