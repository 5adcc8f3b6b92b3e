// Package index is the semantic index capability used by the pipeline:
// add paragraph units, query them by text within a document, and read back
// their metadata. It pairs an embedder with a storage.VectorStore.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bull/docqa/internal/storage"
)

// DefaultQueryCacheSize bounds the number of cached query embeddings.
const DefaultQueryCacheSize = 256

// QueryEmbedTimeout bounds one shared query embedding. The embedding runs
// detached from any single caller, so this is its only deadline.
const QueryEmbedTimeout = 30 * time.Second

// ErrEmptyEmbedding is returned when the embedder yields no vector for a text.
var ErrEmptyEmbedding = errors.New("embedder returned no vector")

// Embedder turns texts into vectors, one per text, in input order.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Index embeds and stores units and answers text queries against them.
// It is safe for concurrent use.
type Index struct {
	embedder Embedder
	store    storage.VectorStore

	// One query fans out to every document, so the same query text is
	// embedded once and shared.
	flight    singleflight.Group
	mu        sync.Mutex
	cache     map[string][]float32
	cacheSize int
}

// New creates an Index. A non-positive cacheSize selects DefaultQueryCacheSize.
func New(embedder Embedder, store storage.VectorStore, cacheSize int) *Index {
	if cacheSize <= 0 {
		cacheSize = DefaultQueryCacheSize
	}
	return &Index{
		embedder:  embedder,
		store:     store,
		cache:     make(map[string][]float32),
		cacheSize: cacheSize,
	}
}

// Add embeds the units' text and upserts them.
func (ix *Index) Add(ctx context.Context, units []*storage.Unit) error {
	if len(units) == 0 {
		return nil
	}
	for i, u := range units {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
	}

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}
	vectors, err := ix.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}
	if len(vectors) != len(units) {
		return fmt.Errorf("embeddings: got %d vectors for %d units", len(vectors), len(units))
	}
	for i, u := range units {
		u.Embedding = vectors[i]
	}

	if err := ix.store.Upsert(ctx, units); err != nil {
		return fmt.Errorf("store units: %w", err)
	}
	return nil
}

// Query returns up to k units of documentID ranked by similarity to text.
func (ix *Index) Query(ctx context.Context, text string, k int, documentID string) ([]*storage.ScoredUnit, error) {
	vector, err := ix.embedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return ix.store.Search(ctx, vector, k, documentID)
}

// Get returns the metadata of every unit of documentID, or of all units when
// documentID is empty.
func (ix *Index) Get(ctx context.Context, documentID string) ([]storage.Metadata, error) {
	return ix.store.ListMetadata(ctx, documentID)
}

// Count returns the number of units stored for documentID.
func (ix *Index) Count(ctx context.Context, documentID string) (int, error) {
	return ix.store.CountUnits(ctx, documentID)
}

// Health reports whether the underlying store is reachable.
func (ix *Index) Health(ctx context.Context) error {
	return ix.store.Health(ctx)
}

func (ix *Index) embedQuery(ctx context.Context, text string) ([]float32, error) {
	ix.mu.Lock()
	if v, ok := ix.cache[text]; ok {
		ix.mu.Unlock()
		return v, nil
	}
	ix.mu.Unlock()

	// Callers with the same text share one embedding; each waits on its own
	// context, so one caller giving up does not fail the others.
	ch := ix.flight.DoChan(text, func() (any, error) {
		ix.mu.Lock()
		cached, ok := ix.cache[text]
		ix.mu.Unlock()
		if ok {
			return cached, nil
		}

		embedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), QueryEmbedTimeout)
		defer cancel()
		vectors, err := ix.embedder.GenerateEmbeddings(embedCtx, []string{text})
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return nil, ErrEmptyEmbedding
		}

		ix.mu.Lock()
		if len(ix.cache) >= ix.cacheSize {
			clear(ix.cache)
		}
		ix.cache[text] = vectors[0]
		ix.mu.Unlock()
		return vectors[0], nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}
