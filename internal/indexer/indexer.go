// Package indexer turns extracted page texts into paragraph units and adds
// them to the semantic index.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/docqa/internal/segment"
	"github.com/bull/docqa/internal/storage"
)

// UnitAdder is the part of the index the indexer writes to.
type UnitAdder interface {
	Add(ctx context.Context, units []*storage.Unit) error
}

// Indexer builds and stores paragraph units for one document at a time.
// Index may be called concurrently for different documents.
type Indexer struct {
	index  UnitAdder
	logger *slog.Logger
}

// New creates an Indexer writing to index.
func New(index UnitAdder, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		index:  index,
		logger: logger,
	}
}

// Units splits pages into paragraph units numbered from 1 per page.
// Pages without paragraphs contribute nothing but still advance the page number.
func Units(documentID, filename string, pages []string) []*storage.Unit {
	var units []*storage.Unit
	for i, page := range pages {
		pageNr := i + 1
		for j, para := range segment.Split(page) {
			paraNr := j + 1
			units = append(units, &storage.Unit{
				ID:         storage.UnitID(documentID, pageNr, paraNr),
				DocumentID: documentID,
				Filename:   filename,
				Page:       pageNr,
				Paragraph:  paraNr,
				Text:       para,
			})
		}
	}
	return units
}

// Index writes every paragraph of pages and returns the number of units written.
// Re-indexing the same content overwrites the existing units.
func (ix *Indexer) Index(ctx context.Context, documentID, filename string, pages []string) (int, error) {
	units := Units(documentID, filename, pages)
	if len(units) == 0 {
		ix.logger.Info("Document has no paragraphs", "doc_id", documentID, "filename", filename, "pages", len(pages))
		return 0, nil
	}

	if err := ix.index.Add(ctx, units); err != nil {
		return 0, fmt.Errorf("index %s: %w", documentID, err)
	}

	ix.logger.Info("Indexed document",
		"doc_id", documentID,
		"filename", filename,
		"pages", len(pages),
		"units", len(units),
	)
	return len(units), nil
}
