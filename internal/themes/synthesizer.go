// Package themes summarises the themes shared by retrieved excerpts.
package themes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/retriever"
)

const (
	// DefaultModel is the chat model used for theme synthesis.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxTokens caps the length of the generated summary.
	DefaultMaxTokens = 500

	// DefaultMaxPromptTokens is the excerpt budget before truncation.
	DefaultMaxPromptTokens = 16000
)

// ErrEmptyCompletion is returned when the model answers with no choices.
var ErrEmptyCompletion = errors.New("chat completion returned no choices")

// Synthesizer asks a chat model for the themes across excerpts.
type Synthesizer struct {
	client          *embedding.Client
	model           string
	maxTokens       int
	maxPromptTokens int
	logger          *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(s *Synthesizer) {
		if model != "" {
			s.model = model
		}
	}
}

// WithMaxTokens overrides DefaultMaxTokens.
func WithMaxTokens(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithMaxPromptTokens overrides DefaultMaxPromptTokens.
func WithMaxPromptTokens(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxPromptTokens = n
		}
	}
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSynthesizer creates a Synthesizer using client.
func NewSynthesizer(client *embedding.Client, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		client:          client,
		model:           DefaultModel,
		maxTokens:       DefaultMaxTokens,
		maxPromptTokens: DefaultMaxPromptTokens,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns the model's theme summary for query over items.
// Rate-limited requests are retried; other failures are returned as is.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, items []retriever.Item) (string, error) {
	prompt := BuildPrompt(query, s.truncateExcerpts(Excerpts(items)))

	var themes string
	operation := func() error {
		if err := s.client.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		resp, err := s.client.Client().Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model:     openai.ChatModel(s.model),
			MaxTokens: openai.Int(int64(s.maxTokens)),
		})
		if err != nil {
			if embedding.IsRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(ErrEmptyCompletion)
		}
		themes = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	if err := backoff.Retry(operation, embedding.NewBackOff(ctx)); err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	s.logger.Debug("Synthesized themes", "excerpts", len(items), "chars", len(themes))
	return themes, nil
}

// Excerpts renders one prompt line per item: "- {filename}: {text} ({citation})".
func Excerpts(items []retriever.Item) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("- %s: %s (%s)", it.Filename, it.ExtractedAnswer, it.Citation)
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt assembles the theme identification prompt.
func BuildPrompt(query, excerpts string) string {
	return fmt.Sprintf(`Given the following query: %q
And the following document excerpts:
%s

Identify and summarize the main themes across these excerpts. For each theme, provide a brief summary and list the supporting documents with their citations.`, query, excerpts)
}

// truncateExcerpts keeps the excerpt block within the prompt budget.
// Uses a rough estimate of 4 characters per token.
func (s *Synthesizer) truncateExcerpts(excerpts string) string {
	maxChars := s.maxPromptTokens * 4
	if len(excerpts) <= maxChars {
		return excerpts
	}

	cut := strings.LastIndexByte(excerpts[:maxChars], '\n')
	if cut <= 0 {
		// A single oversized excerpt: cut inside it, on a rune boundary.
		cut = maxChars
		for cut > 0 && !utf8.RuneStart(excerpts[cut]) {
			cut--
		}
	}

	s.logger.Warn("Truncating theme excerpts",
		"from_chars", len(excerpts),
		"to_chars", cut,
		"max_tokens", s.maxPromptTokens,
		"dropped_excerpts", strings.Count(excerpts[cut:], "\n- "),
	)
	return excerpts[:cut]
}
