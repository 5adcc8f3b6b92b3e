package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// vectorName is the named vector holding paragraph embeddings.
const vectorName = "content"

// QdrantConfig configures a QdrantStorage.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string // defaults to DefaultCollection
	Dimension  int    // defaults to DefaultDimension
}

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(cfg QdrantConfig) (*QdrantStorage, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStorage{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return s, nil
}

func newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// healthCheckWithRetry performs health check with exponential backoff.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, newBackOff(ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the unit collection with cosine distance and the
// payload indexes used for filtering. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}
	return nil
}

// createPayloadIndexes indexes the fields used in filters and scrolls.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context) error {
	fields := map[string]qdrant.FieldType{
		"document_id": qdrant.FieldType_FieldTypeKeyword,
		"filename":    qdrant.FieldType_FieldTypeKeyword,
		"page":        qdrant.FieldType_FieldTypeInteger,
		"paragraph":   qdrant.FieldType_FieldTypeInteger,
	}

	for field, fieldType := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// ClearCollection drops and recreates the collection.
func (s *QdrantStorage) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry upserts points and waits for them to be applied.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, newBackOff(ctx))
}

// Upsert stores units in batches of 100. Point ids are derived from unit ids,
// so writing the same unit twice overwrites it.
func (s *QdrantStorage) Upsert(ctx context.Context, units []*Unit) error {
	if len(units) == 0 {
		return nil
	}

	for i, u := range units {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		if len(u.Embedding) != s.dimension {
			return fmt.Errorf("%w: unit %s has %d dimensions, expected %d",
				ErrDimensionMismatch, u.ID, len(u.Embedding), s.dimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(units); i += batchSize {
		end := min(i+batchSize, len(units))
		batch := units[i:end]
		points := make([]*qdrant.PointStruct, len(batch))

		for j, u := range batch {
			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(PointID(u.ID)),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(u.Embedding...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"unit_id":     u.ID,
					"document_id": u.DocumentID,
					"filename":    u.Filename,
					"page":        u.Page,
					"paragraph":   u.Paragraph,
					"text":        u.Text,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func documentFilter(documentID string) *qdrant.Filter {
	if documentID == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID)},
	}
}

// Search performs vector similarity search restricted to one document.
func (s *QdrantStorage) Search(ctx context.Context, vector []float32, limit int, documentID string) ([]*ScoredUnit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}
	if limit <= 0 {
		return nil, nil
	}

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Filter:         documentFilter(documentID),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search units: %w", err)
	}

	scored := make([]*ScoredUnit, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		scored = append(scored, &ScoredUnit{
			Unit: &Unit{
				ID:         payload["unit_id"].GetStringValue(),
				DocumentID: payload["document_id"].GetStringValue(),
				Filename:   payload["filename"].GetStringValue(),
				Page:       int(payload["page"].GetIntegerValue()),
				Paragraph:  int(payload["paragraph"].GetIntegerValue()),
				Text:       payload["text"].GetStringValue(),
			},
			Score: float64(result.Score),
		})
	}
	return scored, nil
}

// ListMetadata scrolls through the collection and returns unit metadata.
func (s *QdrantStorage) ListMetadata(ctx context.Context, documentID string) ([]Metadata, error) {
	var (
		metas  []Metadata
		offset *qdrant.PointId
		seen   = make(map[string]struct{})
	)
	batchSize := uint32(256)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         documentFilter(documentID),
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("unit_id", "document_id", "filename", "page", "paragraph"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll units: %w", err)
		}

		for _, result := range results {
			// The scroll offset is inclusive, so the first point of a page may
			// repeat the last point of the previous one.
			unitID := result.Payload["unit_id"].GetStringValue()
			if _, dup := seen[unitID]; dup {
				continue
			}
			seen[unitID] = struct{}{}
			metas = append(metas, Metadata{
				DocumentID: result.Payload["document_id"].GetStringValue(),
				Filename:   result.Payload["filename"].GetStringValue(),
				Page:       int(result.Payload["page"].GetIntegerValue()),
				Paragraph:  int(result.Payload["paragraph"].GetIntegerValue()),
			})
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	return metas, nil
}

// CountUnits returns the exact number of points stored for documentID.
func (s *QdrantStorage) CountUnits(ctx context.Context, documentID string) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         documentFilter(documentID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count units: %w", err)
	}
	return int(count), nil
}
