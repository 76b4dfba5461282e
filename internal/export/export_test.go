package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/store"
)

type fakeStore struct {
	store.Store
	businesses []model.Business
}

func (f *fakeStore) ListBusinesses(ctx context.Context, filter store.ListFilter) ([]model.Business, error) {
	return f.businesses, nil
}

func TestWrite(t *testing.T) {
	st := &fakeStore{businesses: []model.Business{
		{
			Name:          "The Sparrowhawk",
			CategorySlug:  "pubs",
			Address:       model.Ptr("Southport Old Rd, Formby"),
			Postcode:      model.Ptr("L37 0AB"),
			Phone:         model.Ptr("01704 882350"),
			Rating:        model.Ptr(4.4),
			ReviewCount:   model.Ptr(1200),
			PriceRange:    model.Ptr("££"),
			HygieneRating: model.Ptr("5"),
			UpdatedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			Name:         "Emmanuelle's",
			CategorySlug: "cafes",
			UpdatedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
	}}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	n, err := Write(context.Background(), st, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	all, ok := f.Sheet["All Businesses"]
	require.True(t, ok)
	require.Len(t, all.Rows, 3)
	assert.Equal(t, "Name", all.Rows[0].Cells[0].String())

	pubs, ok := f.Sheet["Pubs"]
	require.True(t, ok)
	require.Len(t, pubs.Rows, 2)
	assert.Equal(t, "The Sparrowhawk", pubs.Rows[1].Cells[0].String())
	assert.Equal(t, "L37 0AB", pubs.Rows[1].Cells[3].String())
	assert.Equal(t, "5", pubs.Rows[1].Cells[9].String())

	_, ok = f.Sheet["Cafes"]
	assert.True(t, ok)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Nature Walks", sheetName("nature-walks"))
	assert.Equal(t, "Pubs", sheetName("pubs"))
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, "formby-guide-2026-08-28.xlsx", got)
}
