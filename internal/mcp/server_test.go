package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/orchestrator"
	"github.com/bull/docqa/internal/retriever"
)

type fakeAnswerer struct {
	query   string
	exclude []string
}

func (f *fakeAnswerer) Answer(_ context.Context, query string, exclude []string) (*orchestrator.Response, error) {
	if query == "" {
		return nil, orchestrator.ErrEmptyQuery
	}
	f.query = query
	f.exclude = exclude
	return &orchestrator.Response{
		Answers: []retriever.Item{{
			DocumentID:      "doc-1",
			Filename:        "tax.pdf",
			ExtractedAnswer: "Penalties apply.",
			Citation:        "Page 1, Para 2",
		}},
		Themes: "Theme 1: penalties.",
	}, nil
}

type fakeDocs []catalog.Document

func (f fakeDocs) List(context.Context) ([]catalog.Document, error) { return f, nil }

type fakeStats struct {
	units int
	err   error
}

func (f fakeStats) Count(context.Context, string) (int, error) { return f.units, nil }
func (f fakeStats) Health(context.Context) error               { return f.err }

func session(t *testing.T, cfg *Config) *mcp.ClientSession {
	t.Helper()
	srv := NewServer(cfg)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.MCPServer().Run(ctx, serverT) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "docqa-test", Version: "0.1.0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args any, out any) *mcp.CallToolResult {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if result.IsError || out == nil {
		return result
	}
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	require.NoError(t, json.Unmarshal([]byte(tc.Text), out))
	return result
}

func TestQueryDocumentsTool(t *testing.T) {
	answerer := &fakeAnswerer{}
	cs := session(t, &Config{Answerer: answerer, Documents: fakeDocs{}})

	var out QueryDocumentsOutput
	result := callTool(t, cs, "query_documents", map[string]any{
		"query":        "What penalties apply?",
		"exclude_docs": []string{"doc-9"},
	}, &out)
	require.False(t, result.IsError)

	assert.Equal(t, "What penalties apply?", answerer.query)
	assert.Equal(t, []string{"doc-9"}, answerer.exclude)
	require.Len(t, out.Answers, 1)
	assert.Equal(t, "Page 1, Para 2", out.Answers[0].Citation)
	assert.Equal(t, "Theme 1: penalties.", out.Themes)
}

func TestQueryDocumentsTool_EmptyQuery(t *testing.T) {
	cs := session(t, &Config{Answerer: &fakeAnswerer{}, Documents: fakeDocs{}})

	result := callTool(t, cs, "query_documents", map[string]any{"query": ""}, nil)
	assert.True(t, result.IsError)
}

func TestListDocumentsTool(t *testing.T) {
	docs := fakeDocs{
		{DocumentID: "a", Filename: "alpha.txt"},
		{DocumentID: "b", Filename: "beta.pdf"},
	}
	cs := session(t, &Config{Answerer: &fakeAnswerer{}, Documents: docs})

	var out ListDocumentsOutput
	callTool(t, cs, "list_documents", map[string]any{}, &out)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, []catalog.Document(docs), out.Documents)
}

func TestStatusTool(t *testing.T) {
	docs := fakeDocs{{DocumentID: "a", Filename: "alpha.txt"}}
	cs := session(t, &Config{
		Answerer:  &fakeAnswerer{},
		Documents: docs,
		Index:     fakeStats{units: 7},
		Backend:   "sqlite",
	})

	var out StatusOutput
	callTool(t, cs, "get_index_status", map[string]any{}, &out)
	assert.Equal(t, StatusOutput{TotalDocs: 1, TotalUnits: 7, Backend: "sqlite", Healthy: true}, out)
}

func TestStatusHandler_Unhealthy(t *testing.T) {
	handler := makeStatusHandler(fakeDocs{}, fakeStats{err: errors.New("connection refused")}, "qdrant")

	_, out, err := handler(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.False(t, out.Healthy)
	assert.Equal(t, "connection refused", out.Error)
	assert.Equal(t, "qdrant", out.Backend)
}
