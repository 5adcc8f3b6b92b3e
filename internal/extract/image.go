package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// extractImage validates the image header and runs OCR on it.
func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, error) {
	_, kind, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	if e.recognizer == nil {
		return "", ErrNoRecognizer
	}

	text, err := e.recognizer.Recognize(ctx, data, "image/"+kind)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}
