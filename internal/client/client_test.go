package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/api"
	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/ingest"
	"github.com/bull/docqa/internal/retriever"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// deadURL returns the address of a server that has already been shut down.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestUpload(t *testing.T) {
	var gotNames []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for _, fh := range r.MultipartForm.File["files"] {
			gotNames = append(gotNames, fh.Filename)
		}
		writeJSON(w, http.StatusOK, api.UploadResponse{
			Message: "Files uploaded successfully",
			Files:   []ingest.Document{{DocumentID: "d1", Filename: "a.txt"}, {DocumentID: "d2", Filename: "b.txt"}},
			Failed:  []ingest.Failure{},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, nil, nil)
	resp, err := c.Upload(context.Background(), []UploadFile{
		{Name: "a.txt", Data: strings.NewReader("alpha")},
		{Name: "b.txt", Data: strings.NewReader("beta")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, gotNames)
	assert.Equal(t, "Files uploaded successfully", resp.Message)
	assert.Len(t, resp.Files, 2)
}

func TestUpload_AllFailedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, api.UploadResponse{
			Message: "No files could be processed",
			Files:   []ingest.Document{},
			Failed:  []ingest.Failure{{DocumentID: "d1", Filename: "bad.pdf", Reason: "decode pdf"}},
		})
	}))
	defer srv.Close()

	resp, err := New(srv.URL, nil, nil).Upload(context.Background(), []UploadFile{{Name: "bad.pdf", Data: strings.NewReader("x")}})
	require.NoError(t, err)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, "bad.pdf", resp.Failed[0].Filename)
}

func TestUpload_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: `no files provided in field "files"`})
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, nil).Upload(context.Background(), nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Contains(t, statusErr.Message, "no files provided")

	_, err = New(deadURL(t), nil, nil).Upload(context.Background(), []UploadFile{{Name: "a.txt", Data: strings.NewReader("a")}})
	assert.Error(t, err)
}

func TestUploadPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fh := r.MultipartForm.File["files"][0]
		f, err := fh.Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		got = fh.Filename + ":" + string(data)
		writeJSON(w, http.StatusOK, api.UploadResponse{Message: "Files uploaded successfully"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, nil).UploadPaths(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt:hello", got)

	_, err = New(srv.URL, nil, nil).UploadPaths(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/documents", r.URL.Path)
		writeJSON(w, http.StatusOK, api.DocumentsResponse{Documents: []catalog.Document{{DocumentID: "d1", Filename: "a.pdf"}}})
	}))
	defer srv.Close()

	docs := New(srv.URL+"/", nil, nil).Documents(context.Background())
	assert.Equal(t, []catalog.Document{{DocumentID: "d1", Filename: "a.pdf"}}, docs)
}

func TestDocuments_DegradesToEmpty(t *testing.T) {
	docs := New(deadURL(t), nil, nil).Documents(context.Background())
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "failed to list documents"})
	}))
	defer srv.Close()
	assert.Empty(t, New(srv.URL, nil, nil).Documents(context.Background()))
}

func TestQuery(t *testing.T) {
	var got api.QueryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, api.QueryResponse{
			Answers: []retriever.Item{{DocumentID: "d1", Filename: "a.pdf", ExtractedAnswer: "x", Citation: "Page 1, Para 1"}},
			Themes:  "Theme 1",
		})
	}))
	defer srv.Close()

	resp, err := New(srv.URL, nil, nil).Query(context.Background(), "what?", []string{"d2"})
	require.NoError(t, err)
	assert.Equal(t, api.QueryRequest{Query: "what?", ExcludeDocs: []string{"d2"}}, got)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "Page 1, Para 1", resp.Answers[0].Citation)
	assert.Equal(t, "Theme 1", resp.Themes)
}

func TestQuery_TransportFailureDegrades(t *testing.T) {
	resp, err := New(deadURL(t), nil, nil).Query(context.Background(), "what?", nil)
	require.NoError(t, err)
	assert.Equal(t, &api.QueryResponse{Answers: []retriever.Item{}}, resp)
}

func TestQuery_RejectedByServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "query must not be empty"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, nil).Query(context.Background(), "", nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "server returned 400: query must not be empty", statusErr.Error())
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "unhealthy"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, nil).Health(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}
