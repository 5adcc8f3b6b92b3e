package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/bull/docqa/internal/embedding"
)

// DefaultVisionModel reads page images.
const DefaultVisionModel = "gpt-4o-mini"

const visionPrompt = "Transcribe all text in this image exactly as written. " +
	"Separate paragraphs with a blank line. Output only the transcription."

// VisionRecognizer performs OCR with an OpenAI vision model.
type VisionRecognizer struct {
	client *embedding.Client
	model  string
	logger *slog.Logger
}

// NewVisionRecognizer creates a VisionRecognizer. An empty model selects
// DefaultVisionModel.
func NewVisionRecognizer(client *embedding.Client, model string, logger *slog.Logger) *VisionRecognizer {
	if model == "" {
		model = DefaultVisionModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionRecognizer{
		client: client,
		model:  model,
		logger: logger,
	}
}

// Recognize sends the image inline as a base64 data URL.
func (v *VisionRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	var text string
	operation := func() error {
		if err := v.client.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		resp, err := v.client.Client().Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(visionPrompt),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: dataURL,
					}),
				}),
			},
			Model: openai.ChatModel(v.model),
		})
		if err != nil {
			if embedding.IsRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("vision completion returned no choices"))
		}
		text = resp.Choices[0].Message.Content
		return nil
	}

	if err := backoff.Retry(operation, embedding.NewBackOff(ctx)); err != nil {
		return "", fmt.Errorf("vision ocr: %w", err)
	}

	v.logger.Debug("OCR complete", "engine", EngineOpenAI, "model", v.model, "bytes", len(image), "chars", len(text))
	return strings.TrimSpace(text), nil
}
