// Package retriever answers a query against a single document.
package retriever

import (
	"context"
	"fmt"

	"github.com/bull/docqa/internal/storage"
)

// DefaultTopK is the number of paragraphs returned per document.
const DefaultTopK = 2

// Searcher is the query side of the semantic index.
type Searcher interface {
	Query(ctx context.Context, text string, k int, documentID string) ([]*storage.ScoredUnit, error)
}

// Item is one retrieved paragraph.
type Item struct {
	DocumentID      string `json:"document_id"`
	Filename        string `json:"filename"`
	ExtractedAnswer string `json:"extracted_answer"`
	Citation        string `json:"citation"`

	Page      int     `json:"-"`
	Paragraph int     `json:"-"`
	Score     float64 `json:"-"`
}

// RetrievalError reports a failed retrieval for one document.
type RetrievalError struct {
	DocumentID string
	Err        error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve from %s: %v", e.DocumentID, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Retriever returns the most relevant paragraphs of a document.
type Retriever struct {
	index Searcher
}

// New creates a Retriever over index.
func New(index Searcher) *Retriever {
	return &Retriever{index: index}
}

// Retrieve returns up to k paragraphs of documentID by descending relevance.
// A k of zero or less selects DefaultTopK. Unknown documents yield no items.
func (r *Retriever) Retrieve(ctx context.Context, query, documentID string, k int) ([]Item, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	hits, err := r.index.Query(ctx, query, k, documentID)
	if err != nil {
		return nil, &RetrievalError{DocumentID: documentID, Err: err}
	}

	items := make([]Item, 0, len(hits))
	for _, hit := range hits {
		u := hit.Unit
		items = append(items, Item{
			DocumentID:      u.DocumentID,
			Filename:        u.Filename,
			ExtractedAnswer: u.Text,
			Citation:        storage.Citation(u.Page, u.Paragraph),
			Page:            u.Page,
			Paragraph:       u.Paragraph,
			Score:           hit.Score,
		})
	}
	return items, nil
}
