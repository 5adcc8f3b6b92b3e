package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/ingest"
	"github.com/bull/docqa/internal/orchestrator"
)

// uploadMemory is how much of a multipart body is buffered in memory
// before spilling to temp files.
const uploadMemory = 32 << 20

// upload handles POST /upload. Every file of the batch is attempted before
// responding; 422 means none of them could be ingested.
func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart body: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, `no files provided in field "files"`)
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("open %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("read %s: %v", fh.Filename, err))
			return
		}
		files = append(files, ingest.File{Filename: fh.Filename, Data: data})
	}

	result := h.uploader.Upload(r.Context(), files)

	resp := UploadResponse{
		Files:  result.Files,
		Failed: result.Failed,
	}
	if resp.Failed == nil {
		resp.Failed = []ingest.Failure{}
	}

	status := http.StatusOK
	switch {
	case len(result.Failed) == 0:
		resp.Message = "Files uploaded successfully"
	case len(result.Files) == 0:
		resp.Message = "No files could be processed"
		status = http.StatusUnprocessableEntity
	default:
		resp.Message = fmt.Sprintf("Uploaded %d of %d files", len(result.Files), len(files))
	}
	writeJSON(w, status, resp)
}

// query handles POST /query.
func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.answerer.Answer(r.Context(), req.Query, req.ExcludeDocs)
	if err != nil {
		var synthErr *orchestrator.SynthesisError
		switch {
		case errors.Is(err, orchestrator.ErrEmptyQuery):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &synthErr):
			h.logger.Error("Theme synthesis failed", "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error("Query failed", "error", err)
			writeError(w, http.StatusInternalServerError, "query failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{Answers: resp.Answers, Themes: resp.Themes})
}

// listDocuments handles GET /documents.
func (h *handlers) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context())
	if err != nil {
		h.logger.Error("Listing documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []catalog.Document{}
	}
	writeJSON(w, http.StatusOK, DocumentsResponse{Documents: docs})
}
