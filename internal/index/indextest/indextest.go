// Package indextest provides a deterministic embedder and an on-disk index
// for tests of packages built on internal/index.
package indextest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/bull/docqa/internal/index"
	"github.com/bull/docqa/internal/storage"
)

// Dimension is the vector size produced by HashEmbedder.
const Dimension = 64

// HashEmbedder embeds text as a bag of lower-cased words hashed into
// Dimension buckets, so texts sharing words score higher.
type HashEmbedder struct {
	Calls atomic.Int64
}

// GenerateEmbeddings implements index.Embedder.
func (e *HashEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	e.Calls.Add(1)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, Dimension)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			h.Write([]byte(w))
			vec[h.Sum32()%Dimension]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// NewIndex returns an Index over a SQLite store in a test temp dir, plus the
// embedder and store for assertions.
func NewIndex(t *testing.T) (*index.Index, *HashEmbedder, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(t.TempDir(), Dimension)
	if err != nil {
		t.Fatalf("open test index: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := &HashEmbedder{}
	return index.New(embedder, store, 0), embedder, store
}
