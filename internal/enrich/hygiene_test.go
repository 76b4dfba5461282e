package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/resolve"
	"github.com/formby-guide/guide-cli/pkg/fsa"
)

type fsaQuery struct{ name, address string }

// fakeFSAClient scripts responses keyed by name+address query.
type fakeFSAClient struct {
	searches       map[fsaQuery][]fsa.Establishment
	establishments map[string]*fsa.Establishment
	searchCalls    []fsaQuery
}

func (f *fakeFSAClient) SearchEstablishments(ctx context.Context, name, address string) ([]fsa.Establishment, error) {
	q := fsaQuery{name, address}
	f.searchCalls = append(f.searchCalls, q)
	return f.searches[q], nil
}

func (f *fakeFSAClient) Establishment(ctx context.Context, fhrsID string) (*fsa.Establishment, bool, error) {
	e, ok := f.establishments[fhrsID]
	return e, ok, nil
}

func testHygieneOptions() HygieneOptions {
	return HygieneOptions{StripSuffixes: []string{"Formby", "Liverpool"}}
}

func TestHygieneResolve_ExistingIDShortCircuits(t *testing.T) {
	client := &fakeFSAClient{}
	p := NewHygiene(client, testHygieneOptions())

	id, outcome := p.Resolve(context.Background(), model.Business{
		Name:   "The Sparrowhawk",
		FHRSID: model.Ptr("512345"),
	})
	assert.Equal(t, resolve.Resolved, outcome)
	assert.Equal(t, "512345", id)
	assert.Empty(t, client.searchCalls)
}

func TestHygieneResolve_PostcodeTier(t *testing.T) {
	client := &fakeFSAClient{
		searches: map[fsaQuery][]fsa.Establishment{
			{"The Sparrowhawk", "L37 0AB"}: {{FHRSID: 512345}},
		},
	}
	p := NewHygiene(client, testHygieneOptions())

	id, outcome := p.Resolve(context.Background(), model.Business{
		Name:     "The Sparrowhawk",
		Postcode: model.Ptr("L37 0AB"),
	})
	assert.Equal(t, resolve.Resolved, outcome)
	assert.Equal(t, "512345", id)
	assert.Equal(t, []fsaQuery{{"The Sparrowhawk", "L37 0AB"}}, client.searchCalls)
}

func TestHygieneResolve_FallsBackToOutward(t *testing.T) {
	client := &fakeFSAClient{
		searches: map[fsaQuery][]fsa.Establishment{
			{"Coastal Coffee", "L37"}: {{FHRSID: 600100}},
		},
	}
	p := NewHygiene(client, testHygieneOptions())

	id, outcome := p.Resolve(context.Background(), model.Business{
		Name:     "Coastal Coffee Ltd",
		Postcode: model.Ptr("L37 4DU"),
	})
	assert.Equal(t, resolve.Resolved, outcome)
	assert.Equal(t, "600100", id)
}

func TestHygieneResolve_NameOnlyPrefersArea(t *testing.T) {
	client := &fakeFSAClient{
		searches: map[fsaQuery][]fsa.Establishment{
			{"The Grill", ""}: {
				{FHRSID: 1, AddressLine1: "Lord St", AddressLine2: "Southport", PostCode: "PR8 1NY"},
				{FHRSID: 2, AddressLine1: "Chapel Lane", AddressLine2: "Formby", PostCode: "L37 4DU"},
			},
		},
	}
	p := NewHygiene(client, testHygieneOptions())

	id, outcome := p.Resolve(context.Background(), model.Business{
		Name:     "The Grill",
		Postcode: model.Ptr("L37 4DU"),
	})
	assert.Equal(t, resolve.Resolved, outcome)
	assert.Equal(t, "2", id)
}

func TestHygieneResolve_NoPostcodeSkipsAddressTiers(t *testing.T) {
	client := &fakeFSAClient{}
	p := NewHygiene(client, testHygieneOptions())

	_, outcome := p.Resolve(context.Background(), model.Business{Name: "Nowhere"})
	assert.Equal(t, resolve.NotFound, outcome)
	// Only the name-only tier issues a call.
	assert.Equal(t, []fsaQuery{{"Nowhere", ""}}, client.searchCalls)
}

func TestHygieneFetch_Normalizes(t *testing.T) {
	client := &fakeFSAClient{
		establishments: map[string]*fsa.Establishment{
			"512345": {
				FHRSID:       512345,
				BusinessName: "The Sparrowhawk",
				RatingValue:  "5",
				RatingDate:   "2024-03-15T00:00:00",
			},
		},
	}
	p := NewHygiene(client, testHygieneOptions())

	e, found := p.Fetch(context.Background(), "512345")
	require.True(t, found)
	require.NotNil(t, e.FHRSID)
	assert.Equal(t, "512345", *e.FHRSID)
	require.NotNil(t, e.HygieneRating)
	assert.Equal(t, "5", *e.HygieneRating)
	require.NotNil(t, e.HygieneRatingDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *e.HygieneRatingDate)
	require.NotNil(t, e.HygieneRatingShow)
	assert.True(t, *e.HygieneRatingShow)
}

func TestHygieneFetch_ExemptRating(t *testing.T) {
	client := &fakeFSAClient{
		establishments: map[string]*fsa.Establishment{
			"600100": {FHRSID: 600100, RatingValue: "Exempt"},
		},
	}
	p := NewHygiene(client, testHygieneOptions())

	e, found := p.Fetch(context.Background(), "600100")
	require.True(t, found)
	require.NotNil(t, e.HygieneRating)
	assert.Equal(t, "Exempt", *e.HygieneRating)
	assert.Nil(t, e.HygieneRatingDate)
}

func TestHygieneFetch_Miss(t *testing.T) {
	client := &fakeFSAClient{}
	p := NewHygiene(client, testHygieneOptions())

	_, found := p.Fetch(context.Background(), "0")
	assert.False(t, found)
}
