package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/extract"
	"github.com/bull/docqa/internal/index/indextest"
	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/ingest"
	"github.com/bull/docqa/internal/orchestrator"
	"github.com/bull/docqa/internal/retriever"
)

type stubSynthesizer struct {
	themes string
	err    error
}

func (s stubSynthesizer) Synthesize(context.Context, string, []retriever.Item) (string, error) {
	return s.themes, s.err
}

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) error { return s.err }

func newTestRouter(t *testing.T, synth stubSynthesizer) http.Handler {
	t.Helper()
	ix, _, _ := indextest.NewIndex(t)
	cat := catalog.New(ix)

	svc, err := ingest.NewService(extract.New(nil, nil), indexer.New(ix, nil), filepath.Join(t.TempDir(), "uploads"), 2, nil)
	require.NoError(t, err)

	return NewRouter(&Config{
		Uploader:  svc,
		Answerer:  orchestrator.New(cat, retriever.New(ix), synth, orchestrator.Config{}, nil),
		Documents: cat,
		Health:    stubHealth{},
		MCP: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	})
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, files map[string]string) (*httptest.ResponseRecorder, UploadResponse) {
	t.Helper()
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(t, h, req)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func query(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, h, req)
}

func TestUploadThenListDocuments(t *testing.T) {
	h := newTestRouter(t, stubSynthesizer{themes: "t"})

	rec, resp := upload(t, h, map[string]string{
		"alpha.txt": "Alpha first.\n\nAlpha second.",
		"beta.txt":  "Beta only.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Files uploaded successfully", resp.Message)
	assert.Len(t, resp.Files, 2)
	assert.Empty(t, resp.Failed)
	assert.Contains(t, rec.Body.String(), `"failed":[]`)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var docs DocumentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs.Documents, 2)
	assert.Equal(t, "alpha.txt", docs.Documents[0].Filename)
	assert.Equal(t, "beta.txt", docs.Documents[1].Filename)
}

func TestUpload_PartialAndTotalFailure(t *testing.T) {
	h := newTestRouter(t, stubSynthesizer{})

	rec, resp := upload(t, h, map[string]string{
		"good.txt": "fine",
		"bad.pdf":  "not really a pdf",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Uploaded 1 of 2 files", resp.Message)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, "bad.pdf", resp.Failed[0].Filename)
	assert.NotEmpty(t, resp.Failed[0].Reason)

	rec, resp = upload(t, h, map[string]string{"bad.jpg": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, resp.Files)
	assert.Len(t, resp.Failed, 1)
}

func TestUpload_BadRequests(t *testing.T) {
	h := newTestRouter(t, stubSynthesizer{})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, do(t, h, req).Code)

	body, contentType := multipartBody(t, nil)
	req = httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	assert.Equal(t, http.StatusBadRequest, do(t, h, req).Code)
}

func TestQuery(t *testing.T) {
	h := newTestRouter(t, stubSynthesizer{themes: "Theme 1: filing deadlines."})

	_, resp := upload(t, h, map[string]string{
		"tax.txt": "Filing deadlines are in April.\n\nRefunds take six weeks.",
	})
	require.Len(t, resp.Files, 1)
	docID := resp.Files[0].DocumentID

	rec := query(t, h, `{"query": "filing deadlines"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var qr QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))
	require.NotEmpty(t, qr.Answers)
	assert.Equal(t, docID, qr.Answers[0].DocumentID)
	assert.Equal(t, "tax.txt", qr.Answers[0].Filename)
	assert.Equal(t, "Filing deadlines are in April.", qr.Answers[0].ExtractedAnswer)
	assert.Equal(t, "Page 1, Para 1", qr.Answers[0].Citation)
	assert.Equal(t, "Theme 1: filing deadlines.", qr.Themes)
	assert.NotContains(t, rec.Body.String(), "Score")

	rec = query(t, h, `{"query": "filing deadlines", "exclude_docs": ["`+docID+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))
	assert.Empty(t, qr.Answers)
	assert.Equal(t, orchestrator.NoAnswersThemes, qr.Themes)
	assert.Contains(t, rec.Body.String(), `"answers":[]`)
}

func TestQuery_Errors(t *testing.T) {
	h := newTestRouter(t, stubSynthesizer{err: errors.New("model down")})

	assert.Equal(t, http.StatusBadRequest, query(t, h, `{"query": "  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, query(t, h, `{not json`).Code)

	_, resp := upload(t, h, map[string]string{"a.txt": "some words"})
	require.Len(t, resp.Files, 1)
	rec := query(t, h, `{"query": "words"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	assert.Contains(t, er.Error, "model down")
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(stubHealth{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var hr HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hr))
	assert.Equal(t, "healthy", hr.Status)
	assert.Equal(t, "connected", hr.Index)
	assert.NotEmpty(t, hr.Timestamp)

	rec = httptest.NewRecorder()
	NewHealthHandler(stubHealth{err: errors.New("down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hr))
	assert.Equal(t, "unhealthy", hr.Status)
	assert.Equal(t, "disconnected", hr.Index)
}

func TestLandingAndMCPMount(t *testing.T) {
	h := newTestRouter(t, stubSynthesizer{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "POST /query")

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{}")))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
