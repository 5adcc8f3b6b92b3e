// Package catalog lists the documents present in the semantic index.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/bull/docqa/internal/storage"
)

// MetadataReader reads unit metadata from the index.
type MetadataReader interface {
	Get(ctx context.Context, documentID string) ([]storage.Metadata, error)
}

// Document is one indexed document.
type Document struct {
	DocumentID string `json:"doc_id"`
	Filename   string `json:"filename"`
}

// Catalog derives the document list from unit metadata on every call.
type Catalog struct {
	index MetadataReader
}

// New creates a Catalog over index.
func New(index MetadataReader) *Catalog {
	return &Catalog{index: index}
}

// List returns each distinct (document id, filename) pair, sorted by
// filename then id.
func (c *Catalog) List(ctx context.Context) ([]Document, error) {
	meta, err := c.index.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("read index metadata: %w", err)
	}

	seen := make(map[Document]struct{})
	docs := []Document{}
	for _, m := range meta {
		d := Document{DocumentID: m.DocumentID, Filename: m.Filename}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		docs = append(docs, d)
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Filename != docs[j].Filename {
			return docs[i].Filename < docs[j].Filename
		}
		return docs[i].DocumentID < docs[j].DocumentID
	})
	return docs, nil
}

// DocumentIDs returns the distinct document ids in ascending order.
func (c *Catalog) DocumentIDs(ctx context.Context) ([]string, error) {
	docs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(docs))
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.DocumentID]; ok {
			continue
		}
		seen[d.DocumentID] = struct{}{}
		ids = append(ids, d.DocumentID)
	}
	sort.Strings(ids)
	return ids, nil
}
