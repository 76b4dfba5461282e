package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formby-guide/guide-cli/internal/checkpoint"
	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/resolve"
	"github.com/formby-guide/guide-cli/internal/store"
)

// fakeStore is an in-memory Store for driver tests.
type fakeStore struct {
	businesses []model.Business
	merged     map[string]model.Enrichment
	deleted    []string
	mergeErr   error
}

func newFakeStore(businesses ...model.Business) *fakeStore {
	return &fakeStore{
		businesses: businesses,
		merged:     make(map[string]model.Enrichment),
	}
}

func (f *fakeStore) ListBusinesses(ctx context.Context, filter store.ListFilter) ([]model.Business, error) {
	return f.businesses, nil
}

func (f *fakeStore) ApplyEnrichment(ctx context.Context, id string, e model.Enrichment) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merged[id] = e
	return nil
}

func (f *fakeStore) DeleteBusiness(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) InsertBusinesses(ctx context.Context, businesses []model.NewBusiness) (int64, error) {
	return 0, nil
}

func (f *fakeStore) Counts(ctx context.Context) (*store.DatasetCounts, error) {
	return &store.DatasetCounts{Total: int64(len(f.businesses))}, nil
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

// fakeProvider scripts resolution and fetch outcomes per business ID.
type fakeProvider struct {
	outcomes     map[string]resolve.Outcome
	enrichments  map[string]*model.Enrichment
	resolveCalls []string
	fetchCalls   []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Resolve(ctx context.Context, biz model.Business) (string, resolve.Outcome) {
	p.resolveCalls = append(p.resolveCalls, biz.ID)
	outcome, ok := p.outcomes[biz.ID]
	if !ok {
		outcome = resolve.Resolved
	}
	if outcome != resolve.Resolved {
		return "", outcome
	}
	return "ext-" + biz.ID, resolve.Resolved
}

func (p *fakeProvider) Fetch(ctx context.Context, externalID string) (*model.Enrichment, bool) {
	p.fetchCalls = append(p.fetchCalls, externalID)
	e, ok := p.enrichments[externalID]
	return e, ok
}

func biz(id, name string) model.Business {
	return model.Business{ID: id, Name: name, Slug: id, CategorySlug: "pubs"}
}

func newTestPipeline(t *testing.T, st store.Store, p Provider) (*Pipeline, *checkpoint.Store) {
	t.Helper()
	ckpt := checkpoint.NewStore(filepath.Join(t.TempDir(), "progress.json"))
	return New(st, ckpt, p, Options{}), ckpt
}

func TestRun_EnrichesAndCheckpoints(t *testing.T) {
	st := newFakeStore(biz("a", "Alpha"), biz("b", "Beta"))
	provider := &fakeProvider{
		enrichments: map[string]*model.Enrichment{
			"ext-a": {PlaceID: model.Ptr("ext-a"), Phone: model.Ptr("01704 1")},
			"ext-b": {PlaceID: model.Ptr("ext-b"), Phone: model.Ptr("01704 2")},
		},
	}
	p, ckpt := newTestPipeline(t, st, provider)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Enriched)
	assert.Zero(t, summary.Failed)
	assert.Len(t, st.merged, 2)

	state := ckpt.Load()
	assert.True(t, state.Processed("a"))
	assert.True(t, state.Processed("b"))
	processed, failed := state.Counts()
	assert.Equal(t, 2, processed)
	assert.Zero(t, failed)
}

func TestRun_SkipsProcessedRecords(t *testing.T) {
	st := newFakeStore(biz("a", "Alpha"), biz("b", "Beta"))
	provider := &fakeProvider{
		enrichments: map[string]*model.Enrichment{
			"ext-b": {PlaceID: model.Ptr("ext-b")},
		},
	}

	ckpt := checkpoint.NewStore(filepath.Join(t.TempDir(), "progress.json"))
	prior := checkpoint.NewState()
	prior.MarkProcessed("a")
	require.NoError(t, ckpt.Persist(prior))

	p := New(st, ckpt, provider, Options{})
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	// Already-processed record costs zero external calls.
	assert.Equal(t, []string{"b"}, provider.resolveCalls)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Enriched)
}

func TestRun_NotFoundIsTerminal(t *testing.T) {
	st := newFakeStore(biz("a", "Alpha"))
	provider := &fakeProvider{
		outcomes: map[string]resolve.Outcome{"a": resolve.NotFound},
	}
	p, ckpt := newTestPipeline(t, st, provider)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotFound)
	assert.Empty(t, provider.fetchCalls)

	// Recorded in both sets: skipped on rerun unless retry-failed is set.
	state := ckpt.Load()
	assert.True(t, state.Processed("a"))
	assert.True(t, state.Failed("a"))
}

func TestRun_UnavailableStaysRetryable(t *testing.T) {
	st := newFakeStore(biz("a", "Alpha"))
	provider := &fakeProvider{
		outcomes: map[string]resolve.Outcome{"a": resolve.Unavailable},
	}
	p, ckpt := newTestPipeline(t, st, provider)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	state := ckpt.Load()
	assert.False(t, state.Processed("a"))
	assert.True(t, state.Failed("a"))
}

func TestRun_FetchMissStaysRetryable(t *testing.T) {
	st := newFakeStore(biz("a", "Alpha"))
	provider := &fakeProvider{} // resolves, but no enrichment scripted
	p, ckpt := newTestPipeline(t, st, provider)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Enriched)

	state := ckpt.Load()
	assert.False(t, state.Processed("a"))
	assert.True(t, state.Failed("a"))
}

func TestRun_PermanentlyClosedDeletes(t *testing.T) {
	st := newFakeStore(biz("a", "Alpha"))
	provider := &fakeProvider{
		enrichments: map[string]*model.Enrichment{
			"ext-a": {PlaceID: model.Ptr("ext-a"), PermanentlyClosed: true},
		},
	}
	p, ckpt := newTestPipeline(t, st, provider)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Deleted)
	assert.Equal(t, []string{"a"}, st.deleted)
	assert.Empty(t, st.merged)

	assert.True(t, ckpt.Load().Processed("a"))
}

func TestRun_MergeErrorStaysRetryable(t *testing.T) {
	st := newFakeStore(biz("a", "Alpha"))
	st.mergeErr = assert.AnError
	provider := &fakeProvider{
		enrichments: map[string]*model.Enrichment{
			"ext-a": {PlaceID: model.Ptr("ext-a")},
		},
	}
	p, ckpt := newTestPipeline(t, st, provider)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	state := ckpt.Load()
	assert.False(t, state.Processed("a"))
	assert.True(t, state.Failed("a"))
}

func TestRun_RetryFailedReattemptsFailures(t *testing.T) {
	st := newFakeStore(biz("a", "Alpha"))
	provider := &fakeProvider{
		enrichments: map[string]*model.Enrichment{
			"ext-a": {PlaceID: model.Ptr("ext-a")},
		},
	}

	ckpt := checkpoint.NewStore(filepath.Join(t.TempDir(), "progress.json"))
	prior := checkpoint.NewState()
	prior.MarkProcessed("a")
	prior.MarkFailed("a")
	require.NoError(t, ckpt.Persist(prior))

	// Without the flag the record is skipped.
	p := New(st, ckpt, provider, Options{})
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, provider.resolveCalls)

	// With it, the failure is retried and cleared on success.
	p = New(st, ckpt, provider, Options{RetryFailed: true})
	summary, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Enriched)

	state := ckpt.Load()
	assert.True(t, state.Processed("a"))
	assert.False(t, state.Failed("a"))
}

func TestRun_ProcessesInNameOrder(t *testing.T) {
	st := newFakeStore(biz("z", "Zebra Cafe"), biz("a", "Anchor Inn"), biz("m", "Mill House"))
	provider := &fakeProvider{
		enrichments: map[string]*model.Enrichment{
			"ext-z": {PlaceID: model.Ptr("ext-z")},
			"ext-a": {PlaceID: model.Ptr("ext-a")},
			"ext-m": {PlaceID: model.Ptr("ext-m")},
		},
	}
	p, _ := newTestPipeline(t, st, provider)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, provider.resolveCalls)
}
