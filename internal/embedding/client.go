// Package embedding generates text embeddings with the OpenAI API.
package embedding

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// ErrMissingAPIKey is returned when no OpenAI API key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable not set")

// Client wraps the OpenAI client shared by embeddings, theme synthesis and OCR.
type Client struct {
	client  *openai.Client
	limiter *rate.Limiter
}

// NewClient creates an OpenAI client. The API key falls back to OPENAI_API_KEY;
// extra options (base URL, retries) are passed through to openai-go.
func NewClient(apiKey string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (themes, ocr).
func (c *Client) Client() *openai.Client {
	return c.client
}

// SetRateLimit throttles every request made through this client to rpm
// requests per minute. Zero or less removes the limit.
func (c *Client) SetRateLimit(rpm int) {
	if rpm <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// Wait blocks until the next request may be sent.
func (c *Client) Wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}
