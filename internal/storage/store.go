// Package storage holds the vector store adapters behind the semantic index.
package storage

import "context"

// VectorStore persists paragraph units with their embeddings and answers
// nearest-neighbour queries scoped to a single document.
type VectorStore interface {
	// Upsert stores units, replacing any unit with the same ID.
	Upsert(ctx context.Context, units []*Unit) error

	// Search returns up to limit units of documentID ordered by descending
	// similarity to vector. An empty documentID searches every document.
	Search(ctx context.Context, vector []float32, limit int, documentID string) ([]*ScoredUnit, error)

	// ListMetadata returns the metadata of every stored unit of documentID,
	// or of all units when documentID is empty.
	ListMetadata(ctx context.Context, documentID string) ([]Metadata, error)

	// CountUnits returns the number of units stored for documentID, or the
	// total when documentID is empty.
	CountUnits(ctx context.Context, documentID string) (int, error)

	Health(ctx context.Context) error
	Close() error
}
