// Package mcp exposes document question answering as MCP tools.
package mcp

import (
	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/retriever"
)

// QueryDocumentsInput defines the input parameters for the query_documents tool.
type QueryDocumentsInput struct {
	// Query is the question asked across all documents.
	Query string `json:"query" jsonschema:"The question to answer from the uploaded documents"`
	// ExcludeDocs lists document ids to leave out.
	ExcludeDocs []string `json:"exclude_docs,omitempty" jsonschema:"Document ids to exclude from the search"`
}

// QueryDocumentsOutput contains per-document answers and their themes.
type QueryDocumentsOutput struct {
	Answers []retriever.Item `json:"answers"`
	Themes  string           `json:"themes"`
	// Skipped lists documents whose retrieval failed.
	Skipped []string `json:"skipped,omitempty"`
}

// ListDocumentsInput takes no parameters.
type ListDocumentsInput struct{}

// ListDocumentsOutput contains every indexed document.
type ListDocumentsOutput struct {
	Documents []catalog.Document `json:"documents"`
	Count     int                `json:"count"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput describes the index contents.
type StatusOutput struct {
	TotalDocs  int    `json:"total_docs"`
	TotalUnits int    `json:"total_units"`
	Backend    string `json:"backend"`
	Healthy    bool   `json:"healthy"`
	Error      string `json:"error,omitempty"`
}
