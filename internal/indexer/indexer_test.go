package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/index/indextest"
	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/storage"
)

func TestUnits_TwoPageCitations(t *testing.T) {
	units := indexer.Units("doc1", "doc.pdf", []string{"Intro.\n\nBody text.", "Conclusion."})
	require.Len(t, units, 3)

	var citations, ids, texts []string
	for _, u := range units {
		citations = append(citations, u.Metadata().Citation())
		ids = append(ids, u.ID)
		texts = append(texts, u.Text)
	}
	assert.Equal(t, []string{"Page 1, Para 1", "Page 1, Para 2", "Page 2, Para 1"}, citations)
	assert.Equal(t, []string{"doc1_p1_para1", "doc1_p1_para2", "doc1_p2_para1"}, ids)
	assert.Equal(t, []string{"Intro.", "Body text.", "Conclusion."}, texts)
}

func TestUnits_EmptyPageKeepsNumbering(t *testing.T) {
	units := indexer.Units("d", "f.pdf", []string{"a", "  \n\n ", "b\n\n\n\nc"})
	require.Len(t, units, 3)
	assert.Equal(t, "d_p1_para1", units[0].ID)
	assert.Equal(t, "d_p3_para1", units[1].ID)
	assert.Equal(t, "d_p3_para2", units[2].ID)
}

func TestIndex_StoresEveryParagraph(t *testing.T) {
	ctx := context.Background()
	ix, _, store := indextest.NewIndex(t)
	idx := indexer.New(ix, nil)

	pages := []string{"Intro.\n\nBody text.", "Conclusion."}
	n, err := idx.Index(ctx, "doc1", "doc.pdf", pages)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	meta, err := store.ListMetadata(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, meta, 3)
	for _, m := range meta {
		assert.Equal(t, "doc1", m.DocumentID)
		assert.Equal(t, "doc.pdf", m.Filename)
	}
	assert.Equal(t, "Page 2, Para 1", meta[2].Citation())
}

func TestIndex_ReindexIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ix, _, store := indextest.NewIndex(t)
	idx := indexer.New(ix, nil)

	pages := []string{"one\n\ntwo\n\nthree", "four"}
	_, err := idx.Index(ctx, "doc1", "a.txt", pages)
	require.NoError(t, err)
	_, err = idx.Index(ctx, "doc1", "a.txt", pages)
	require.NoError(t, err)

	count, err := store.CountUnits(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestIndex_EmptyDocument(t *testing.T) {
	ctx := context.Background()
	ix, embedder, store := indextest.NewIndex(t)
	idx := indexer.New(ix, nil)

	n, err := idx.Index(ctx, "empty", "blank.txt", []string{"", " \n\n\t"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, embedder.Calls.Load())

	count, err := store.CountUnits(ctx, "empty")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIndex_ConcurrentDocuments(t *testing.T) {
	ctx := context.Background()
	ix, _, store := indextest.NewIndex(t)
	idx := indexer.New(ix, nil)

	const docs = 6
	var wg sync.WaitGroup
	errs := make([]error, docs)
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("first paragraph %d\n\nsecond paragraph %d", i, i)
			_, errs[i] = idx.Index(ctx, fmt.Sprintf("doc%d", i), fmt.Sprintf("f%d.txt", i), []string{text})
		}(i)
	}
	wg.Wait()

	for i := range docs {
		require.NoError(t, errs[i])
		count, err := store.CountUnits(ctx, fmt.Sprintf("doc%d", i))
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	}
}

type failingAdder struct{ err error }

func (f failingAdder) Add(context.Context, []*storage.Unit) error { return f.err }

func TestIndex_AddError(t *testing.T) {
	boom := errors.New("store down")
	_, err := indexer.New(failingAdder{err: boom}, nil).Index(context.Background(), "d", "f.txt", []string{"text"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "d")
}
