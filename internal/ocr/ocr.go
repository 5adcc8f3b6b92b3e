// Package ocr recognises text in page images.
//
// Two engines are available: VisionRecognizer sends the image to an OpenAI
// vision model, TesseractRecognizer runs a local tesseract binary.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/docqa/internal/embedding"
)

// Engine names accepted by New.
const (
	EngineOpenAI    = "openai"
	EngineTesseract = "tesseract"
)

// Recognizer turns an image into text. Output is returned as produced, even
// when it is empty or garbled.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

// UnknownEngineError reports an unsupported engine name.
type UnknownEngineError struct {
	Engine string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown OCR engine %q (want %s or %s)", e.Engine, EngineOpenAI, EngineTesseract)
}

// Engines returns the supported engine names.
func Engines() []string {
	return []string{EngineOpenAI, EngineTesseract}
}

// ValidEngine reports whether name selects a supported engine.
func ValidEngine(name string) bool {
	switch strings.ToLower(name) {
	case EngineOpenAI, EngineTesseract:
		return true
	}
	return false
}

// New returns the recognizer for engine. client and model serve the openai
// engine; tesseractPath serves the tesseract engine.
func New(engine string, client *embedding.Client, model, tesseractPath string, logger *slog.Logger) (Recognizer, error) {
	switch strings.ToLower(engine) {
	case EngineOpenAI:
		return NewVisionRecognizer(client, model, logger), nil
	case EngineTesseract:
		return NewTesseractRecognizer(tesseractPath, logger), nil
	}
	return nil, &UnknownEngineError{Engine: engine}
}
