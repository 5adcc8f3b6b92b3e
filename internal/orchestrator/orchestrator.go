// Package orchestrator answers a query across every indexed document and
// summarises the themes of the combined answers.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bull/docqa/internal/retriever"
)

// NoAnswersThemes is the themes text when no document produced an answer.
const NoAnswersThemes = "No relevant answers found."

const (
	DefaultWorkers          = 4
	DefaultRetrievalTimeout = 30 * time.Second
)

// DocumentLister lists the ids of indexed documents.
type DocumentLister interface {
	DocumentIDs(ctx context.Context) ([]string, error)
}

// Retriever answers a query within one document.
type Retriever interface {
	Retrieve(ctx context.Context, query, documentID string, k int) ([]retriever.Item, error)
}

// Synthesizer summarises the themes across items.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, items []retriever.Item) (string, error)
}

// Config tunes the fan-out. Zero values select the defaults.
type Config struct {
	Workers          int
	TopK             int
	RetrievalTimeout time.Duration
}

// Response is the aggregated answer to a query.
type Response struct {
	Answers []retriever.Item `json:"answers"`
	Themes  string           `json:"themes"`

	// Skipped lists documents whose retrieval failed.
	Skipped []string `json:"-"`
}

// Orchestrator fans a query out over documents and synthesises themes.
type Orchestrator struct {
	catalog     DocumentLister
	retriever   Retriever
	synthesizer Synthesizer
	cfg         Config
	logger      *slog.Logger
}

// New creates an Orchestrator.
func New(catalog DocumentLister, r Retriever, s Synthesizer, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.TopK <= 0 {
		cfg.TopK = retriever.DefaultTopK
	}
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		catalog:     catalog,
		retriever:   r,
		synthesizer: s,
		cfg:         cfg,
		logger:      logger,
	}
}

// Answer retrieves from every document not in exclude and summarises the
// themes of the answers. Answers are ordered by document id, then by
// relevance within the document. A failed retrieval skips its document.
func (o *Orchestrator) Answer(ctx context.Context, query string, exclude []string) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	ids, err := o.catalog.DocumentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	active := activeDocuments(ids, exclude)

	start := time.Now()
	results := make([][]retriever.Item, len(active))
	failed := make([]bool, len(active))

	// Task errors are logged, never returned, so one failure cannot cancel
	// the other retrievals.
	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for i, id := range active {
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(ctx, o.cfg.RetrievalTimeout)
			defer cancel()

			items, err := o.retriever.Retrieve(rctx, query, id, o.cfg.TopK)
			if err != nil {
				o.logger.Warn("Retrieval failed, skipping document", "doc_id", id, "error", err)
				failed[i] = true
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &Response{Answers: []retriever.Item{}}
	for i, items := range results {
		if failed[i] {
			resp.Skipped = append(resp.Skipped, active[i])
			continue
		}
		resp.Answers = append(resp.Answers, items...)
	}

	o.logger.Info("Retrieved answers",
		"documents", len(active),
		"excluded", len(ids)-len(active),
		"skipped", len(resp.Skipped),
		"answers", len(resp.Answers),
		"duration", time.Since(start),
	)

	if len(resp.Answers) == 0 {
		resp.Themes = NoAnswersThemes
		return resp, nil
	}

	themes, err := o.synthesizer.Synthesize(ctx, query, resp.Answers)
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	resp.Themes = themes
	return resp, nil
}

// activeDocuments returns ids minus exclude, sorted and without duplicates.
func activeDocuments(ids, exclude []string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	active := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; ok {
			continue
		}
		active = append(active, id)
	}
	slices.Sort(active)
	return slices.Compact(active)
}
