// Package ingest runs uploaded files through extraction and indexing.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bull/docqa/internal/extract"
)

// DefaultWorkers bounds concurrent file processing within a batch.
const DefaultWorkers = 4

// Extractor returns the page texts of a file.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string) ([]string, error)
}

// Indexer stores a document's paragraphs.
type Indexer interface {
	Index(ctx context.Context, documentID, filename string, pages []string) (int, error)
}

// File is one uploaded file.
type File struct {
	Filename string
	Data     []byte
}

// Document is a successfully ingested file.
type Document struct {
	DocumentID string `json:"doc_id"`
	Filename   string `json:"filename"`
	Pages      int    `json:"-"`
	Units      int    `json:"-"`
}

// Failure is a file that could not be ingested.
type Failure struct {
	DocumentID string `json:"doc_id"`
	Filename   string `json:"filename"`
	Reason     string `json:"error"`
	Err        error  `json:"-"`
}

// Result contains statistics about an ingestion batch. Files and Failed
// keep the order of the input.
type Result struct {
	Files      []Document
	Failed     []Failure
	TotalUnits int
	Duration   time.Duration
}

// Service stores raw uploads and indexes their text.
type Service struct {
	extractor Extractor
	indexer   Indexer
	uploadDir string
	workers   int
	logger    *slog.Logger
}

// NewService creates a Service saving raw files under uploadDir.
// A non-positive workers selects DefaultWorkers.
func NewService(extractor Extractor, indexer Indexer, uploadDir string, workers int, logger *slog.Logger) (*Service, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Service{
		extractor: extractor,
		indexer:   indexer,
		uploadDir: uploadDir,
		workers:   workers,
		logger:    logger,
	}, nil
}

// UploadDir returns the directory raw uploads are written to.
func (s *Service) UploadDir() string {
	return s.uploadDir
}

// StoredPath returns where the raw bytes of a document are kept:
// {upload_dir}/{document_id}{lower-cased extension}.
func (s *Service) StoredPath(documentID, filename string) string {
	return filepath.Join(s.uploadDir, documentID+strings.ToLower(filepath.Ext(filename)))
}

type outcome struct {
	doc     Document
	failure *Failure
}

// Upload ingests files and returns after every file has been attempted.
// A file that fails does not affect the others.
func (s *Service) Upload(ctx context.Context, files []File) *Result {
	start := time.Now()
	outcomes := make([]outcome, len(files))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, f := range files {
		id := uuid.New().String()
		g.Go(func() error {
			units, pages, err := s.process(ctx, id, f)
			if err != nil {
				s.logger.Warn("Failed to ingest file", "doc_id", id, "filename", f.Filename, "error", err)
				outcomes[i].failure = &Failure{
					DocumentID: id,
					Filename:   f.Filename,
					Reason:     err.Error(),
					Err:        err,
				}
				return nil
			}
			outcomes[i].doc = Document{DocumentID: id, Filename: f.Filename, Pages: pages, Units: units}
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{Files: []Document{}}
	for _, o := range outcomes {
		if o.failure != nil {
			result.Failed = append(result.Failed, *o.failure)
			continue
		}
		result.Files = append(result.Files, o.doc)
		result.TotalUnits += o.doc.Units
	}
	result.Duration = time.Since(start)

	s.logger.Info("Upload complete",
		"successful", len(result.Files),
		"failed", len(result.Failed),
		"units", result.TotalUnits,
		"duration", result.Duration,
	)
	return result
}

// IngestPath reads a file from disk and ingests it as a single-file batch.
func (s *Service) IngestPath(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s.Upload(ctx, []File{{Filename: filepath.Base(path), Data: data}}), nil
}

// process persists, extracts and indexes one file. Returns the unit and
// page counts.
func (s *Service) process(ctx context.Context, id string, f File) (int, int, error) {
	if f.Filename == "" {
		return 0, 0, errors.New("missing filename")
	}
	if err := os.WriteFile(s.StoredPath(id, f.Filename), f.Data, 0o644); err != nil {
		return 0, 0, fmt.Errorf("save upload: %w", err)
	}

	pages, err := s.extractor.Extract(ctx, f.Data, f.Filename)
	if err != nil {
		if extract.IsDecodeError(err) {
			return 0, 0, err
		}
		return 0, 0, fmt.Errorf("extract: %w", err)
	}

	units, err := s.indexer.Index(ctx, id, f.Filename, pages)
	if err != nil {
		return 0, 0, err
	}
	return units, len(pages), nil
}
