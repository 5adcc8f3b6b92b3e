package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/index/indextest"
	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/orchestrator"
	"github.com/bull/docqa/internal/retriever"
)

type staticLister []string

func (s staticLister) DocumentIDs(context.Context) ([]string, error) { return s, nil }

type fakeRetriever struct {
	items map[string][]retriever.Item
	errs  map[string]error
	delay map[string]time.Duration

	mu    sync.Mutex
	calls []string

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeRetriever) Retrieve(ctx context.Context, _ string, documentID string, _ int) ([]retriever.Item, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, documentID)
	f.mu.Unlock()

	if d := f.delay[documentID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, &retriever.RetrievalError{DocumentID: documentID, Err: ctx.Err()}
		}
	}
	if err := f.errs[documentID]; err != nil {
		return nil, &retriever.RetrievalError{DocumentID: documentID, Err: err}
	}
	return f.items[documentID], nil
}

type recordingSynthesizer struct {
	calls  int
	query  string
	items  []retriever.Item
	themes string
	err    error
}

func (s *recordingSynthesizer) Synthesize(_ context.Context, query string, items []retriever.Item) (string, error) {
	s.calls++
	s.query = query
	s.items = items
	return s.themes, s.err
}

func item(doc, text string, para int) retriever.Item {
	return retriever.Item{
		DocumentID:      doc,
		Filename:        doc + ".txt",
		ExtractedAnswer: text,
		Citation:        fmt.Sprintf("Page 1, Para %d", para),
	}
}

func TestAnswer_ZeroDocuments(t *testing.T) {
	synth := &recordingSynthesizer{themes: "unused"}
	o := orchestrator.New(staticLister{}, &fakeRetriever{}, synth, orchestrator.Config{}, nil)

	resp, err := o.Answer(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Answers)
	assert.NotNil(t, resp.Answers)
	assert.Equal(t, orchestrator.NoAnswersThemes, resp.Themes)
	assert.Zero(t, synth.calls)
}

func TestAnswer_EmptyQuery(t *testing.T) {
	o := orchestrator.New(staticLister{"a"}, &fakeRetriever{}, &recordingSynthesizer{}, orchestrator.Config{}, nil)

	_, err := o.Answer(context.Background(), "  \t", nil)
	assert.ErrorIs(t, err, orchestrator.ErrEmptyQuery)
}

func TestAnswer_OrderedByDocumentThenRank(t *testing.T) {
	r := &fakeRetriever{
		items: map[string][]retriever.Item{
			"c": {item("c", "c-best", 3), item("c", "c-second", 1)},
			"a": {item("a", "a-best", 2)},
			"b": {item("b", "b-best", 1), item("b", "b-second", 4)},
		},
		delay: map[string]time.Duration{"a": 30 * time.Millisecond},
	}
	synth := &recordingSynthesizer{themes: "Theme: things."}
	o := orchestrator.New(staticLister{"c", "a", "b"}, r, synth, orchestrator.Config{}, nil)

	resp, err := o.Answer(context.Background(), "q", nil)
	require.NoError(t, err)

	var texts []string
	for _, it := range resp.Answers {
		texts = append(texts, it.ExtractedAnswer)
	}
	assert.Equal(t, []string{"a-best", "b-best", "b-second", "c-best", "c-second"}, texts)
	assert.Equal(t, "Theme: things.", resp.Themes)
	assert.Equal(t, 1, synth.calls)
	assert.Equal(t, "q", synth.query)
	assert.Equal(t, resp.Answers, synth.items)
}

func TestAnswer_ExcludedNeverQueried(t *testing.T) {
	r := &fakeRetriever{items: map[string][]retriever.Item{
		"a": {item("a", "from a", 1)},
		"b": {item("b", "from b", 1)},
		"c": {item("c", "from c", 1)},
	}}
	o := orchestrator.New(staticLister{"a", "b", "c"}, r, &recordingSynthesizer{themes: "t"}, orchestrator.Config{}, nil)

	resp, err := o.Answer(context.Background(), "q", []string{"b", "unknown"})
	require.NoError(t, err)
	for _, it := range resp.Answers {
		assert.NotEqual(t, "b", it.DocumentID)
	}
	assert.Len(t, resp.Answers, 2)
	assert.NotContains(t, r.calls, "b")
}

func TestAnswer_AllExcluded(t *testing.T) {
	synth := &recordingSynthesizer{}
	o := orchestrator.New(staticLister{"a"}, &fakeRetriever{}, synth, orchestrator.Config{}, nil)

	resp, err := o.Answer(context.Background(), "q", []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, resp.Answers)
	assert.Equal(t, orchestrator.NoAnswersThemes, resp.Themes)
	assert.Zero(t, synth.calls)
}

func TestAnswer_FailedRetrievalSkipped(t *testing.T) {
	r := &fakeRetriever{
		items: map[string][]retriever.Item{"good": {item("good", "survivor", 1)}},
		errs:  map[string]error{"bad": errors.New("store timeout")},
	}
	o := orchestrator.New(staticLister{"bad", "good"}, r, &recordingSynthesizer{themes: "t"}, orchestrator.Config{}, nil)

	resp, err := o.Answer(context.Background(), "q", nil)
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "survivor", resp.Answers[0].ExtractedAnswer)
	assert.Equal(t, []string{"bad"}, resp.Skipped)
}

func TestAnswer_RetrievalTimeout(t *testing.T) {
	r := &fakeRetriever{
		items: map[string][]retriever.Item{
			"fast": {item("fast", "quick", 1)},
			"slow": {item("slow", "late", 1)},
		},
		delay: map[string]time.Duration{"slow": 5 * time.Second},
	}
	cfg := orchestrator.Config{RetrievalTimeout: 50 * time.Millisecond}
	o := orchestrator.New(staticLister{"fast", "slow"}, r, &recordingSynthesizer{themes: "t"}, cfg, nil)

	resp, err := o.Answer(context.Background(), "q", nil)
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "fast", resp.Answers[0].DocumentID)
	assert.Equal(t, []string{"slow"}, resp.Skipped)
}

func TestAnswer_SynthesisError(t *testing.T) {
	boom := errors.New("model unavailable")
	r := &fakeRetriever{items: map[string][]retriever.Item{"a": {item("a", "x", 1)}}}
	o := orchestrator.New(staticLister{"a"}, r, &recordingSynthesizer{err: boom}, orchestrator.Config{}, nil)

	_, err := o.Answer(context.Background(), "q", nil)
	require.Error(t, err)

	var se *orchestrator.SynthesisError
	assert.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, boom)
}

func TestAnswer_BoundedWorkers(t *testing.T) {
	ids := make(staticLister, 12)
	delay := make(map[string]time.Duration, len(ids))
	for i := range ids {
		ids[i] = fmt.Sprintf("doc%02d", i)
		delay[ids[i]] = 10 * time.Millisecond
	}
	r := &fakeRetriever{delay: delay}
	o := orchestrator.New(ids, r, &recordingSynthesizer{}, orchestrator.Config{Workers: 3}, nil)

	_, err := o.Answer(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Len(t, r.calls, 12)
	assert.LessOrEqual(t, r.peak.Load(), int32(3))
}

func TestAnswer_CallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &fakeRetriever{delay: map[string]time.Duration{"a": time.Second}}
	o := orchestrator.New(staticLister{"a"}, r, &recordingSynthesizer{}, orchestrator.Config{}, nil)

	_, err := o.Answer(ctx, "q", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnswer_EndToEndWithIndex(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := indextest.NewIndex(t)
	idx := indexer.New(ix, nil)

	_, err := idx.Index(ctx, "doc-a", "tax.pdf", []string{"Late filing penalties are five percent.\n\nOffice hours are nine to five."})
	require.NoError(t, err)
	_, err = idx.Index(ctx, "doc-b", "memo.txt", []string{"Penalties for late filing were raised.\n\nLunch is at noon."})
	require.NoError(t, err)

	synth := &recordingSynthesizer{themes: "Theme 1: penalties."}
	o := orchestrator.New(catalog.New(ix), retriever.New(ix), synth, orchestrator.Config{TopK: 1}, nil)

	resp, err := o.Answer(ctx, "late filing penalties", nil)
	require.NoError(t, err)
	require.Len(t, resp.Answers, 2)
	assert.Equal(t, "doc-a", resp.Answers[0].DocumentID)
	assert.Equal(t, "Page 1, Para 1", resp.Answers[0].Citation)
	assert.Equal(t, "doc-b", resp.Answers[1].DocumentID)
	assert.Equal(t, "Theme 1: penalties.", resp.Themes)

	resp, err = o.Answer(ctx, "late filing penalties", []string{"doc-a"})
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "doc-b", resp.Answers[0].DocumentID)
}
