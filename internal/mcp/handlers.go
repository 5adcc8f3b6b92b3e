package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/orchestrator"
)

// makeQueryHandler creates the query_documents tool handler.
func makeQueryHandler(answerer Answerer) func(
	context.Context, *mcp.CallToolRequest, QueryDocumentsInput,
) (*mcp.CallToolResult, QueryDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input QueryDocumentsInput) (
		*mcp.CallToolResult, QueryDocumentsOutput, error,
	) {
		resp, err := answerer.Answer(ctx, input.Query, input.ExcludeDocs)
		if err != nil {
			if errors.Is(err, orchestrator.ErrEmptyQuery) {
				return nil, QueryDocumentsOutput{}, err
			}
			return nil, QueryDocumentsOutput{}, fmt.Errorf("query failed: %w", err)
		}
		return nil, QueryDocumentsOutput{
			Answers: resp.Answers,
			Themes:  resp.Themes,
			Skipped: resp.Skipped,
		}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(docs DocumentLister) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		list, err := docs.List(ctx)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}
		if list == nil {
			list = []catalog.Document{}
		}
		return nil, ListDocumentsOutput{Documents: list, Count: len(list)}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler. An
// unreachable store is reported in the output rather than as a tool error.
func makeStatusHandler(docs DocumentLister, index IndexStats, backend string) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		out := StatusOutput{Backend: backend}
		if err := index.Health(ctx); err != nil {
			out.Error = err.Error()
			return nil, out, nil
		}
		out.Healthy = true

		list, err := docs.List(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("index_error: failed to list documents: %w", err)
		}
		units, err := index.Count(ctx, "")
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("index_error: failed to count units: %w", err)
		}
		out.TotalDocs = len(list)
		out.TotalUnits = units
		return nil, out, nil
	}
}
