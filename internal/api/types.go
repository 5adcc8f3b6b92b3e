// Package api serves the document QA HTTP interface.
package api

import (
	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/ingest"
	"github.com/bull/docqa/internal/retriever"
)

// UploadResponse is the body of POST /upload.
type UploadResponse struct {
	Message string            `json:"message"`
	Files   []ingest.Document `json:"files"`
	Failed  []ingest.Failure  `json:"failed"`
}

// QueryRequest is the body accepted by POST /query.
type QueryRequest struct {
	Query       string   `json:"query"`
	ExcludeDocs []string `json:"exclude_docs"`
}

// QueryResponse is the body of POST /query.
type QueryResponse struct {
	Answers []retriever.Item `json:"answers"`
	Themes  string           `json:"themes"`
}

// DocumentsResponse is the body of GET /documents.
type DocumentsResponse struct {
	Documents []catalog.Document `json:"documents"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
