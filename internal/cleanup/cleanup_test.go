package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/store"
)

// fakeStore lists a fixed set and records deletions.
type fakeStore struct {
	store.Store
	businesses []model.Business
	deleted    []string
}

func (f *fakeStore) ListBusinesses(ctx context.Context, filter store.ListFilter) ([]model.Business, error) {
	return f.businesses, nil
}

func (f *fakeStore) DeleteBusiness(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestPruner_Matches(t *testing.T) {
	p, err := New(nil, DefaultRules())
	require.NoError(t, err)

	// Exact names.
	assert.True(t, p.Matches("Formby Medical Centre"))
	assert.True(t, p.Matches("Formby Post Office"))

	// Patterns: individual holiday-let listings.
	assert.True(t, p.Matches("2 Bedroom Flat in Formby"))
	assert.True(t, p.Matches("Let It Be - Two-Bedroom House"))
	assert.True(t, p.Matches("Cosy Cottage (sleeps 6)"))
	assert.True(t, p.Matches("Seaside Self-Catering Retreat"))
	assert.True(t, p.Matches("12 Victoria Road"))

	// Protect list overrides patterns.
	assert.False(t, p.Matches("Formby Beach Self-Catering"))
	assert.False(t, p.Matches("Formby Hall Golf Resort & Spa"))

	// Ordinary visitor businesses survive.
	assert.False(t, p.Matches("The Sparrowhawk"))
	assert.False(t, p.Matches("Emmanuelle's"))
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
delete_names:
  - "Formby Tyres"
delete_patterns:
  - 'holiday\s+let\b'
protect_names:
  - "Tree Tops Holiday Cottages"
`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Formby Tyres"}, rules.DeleteNames)
	assert.Len(t, rules.DeletePatterns, 1)

	p, err := New(nil, rules)
	require.NoError(t, err)
	assert.True(t, p.Matches("Formby Tyres"))
	assert.True(t, p.Matches("Beachside Holiday Let"))
	assert.False(t, p.Matches("Tree Tops Holiday Cottages"))
}

func TestLoadRules_InvalidPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
delete_patterns:
  - '(unclosed'
`), 0o644))

	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestRun_DryRunReportsWithoutDeleting(t *testing.T) {
	st := &fakeStore{businesses: []model.Business{
		{ID: "1", Name: "The Sparrowhawk"},
		{ID: "2", Name: "Formby Medical Centre"},
	}}
	p, err := New(st, DefaultRules())
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Matched)
	assert.Zero(t, summary.Deleted)
	assert.Equal(t, []string{"Formby Medical Centre"}, summary.Names)
	assert.Empty(t, st.deleted)
}

func TestRun_DeletesMatches(t *testing.T) {
	st := &fakeStore{businesses: []model.Business{
		{ID: "1", Name: "The Sparrowhawk"},
		{ID: "2", Name: "Formby Medical Centre"},
		{ID: "3", Name: "Let It Be - Two-Bedroom House"},
	}}
	p, err := New(st, DefaultRules())
	require.NoError(t, err)

	summary, err := p.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Deleted)
	assert.ElementsMatch(t, []string{"2", "3"}, st.deleted)
}
