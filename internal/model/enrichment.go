package model

import "time"

// Enrichment is the normalized output of one provider detail fetch for one
// business. A nil field means the provider supplied no value and the stored
// value must be left untouched by the merge.
type Enrichment struct {
	// External identifiers are refreshed whenever resolution succeeds.
	PlaceID *string
	FHRSID  *string

	// PermanentlyClosed is a terminal signal: the business is deleted
	// instead of merged.
	PermanentlyClosed bool

	Phone             *string
	Website           *string
	Rating            *float64
	ReviewCount       *int
	PriceRange        *string
	OpeningHours      *OpeningHours
	Address           *string
	Postcode          *string
	ShortDescription  *string
	HygieneRating     *string
	HygieneRatingDate *time.Time
	HygieneRatingShow *bool
}

// Ptr returns a pointer to v. Convenience for building enrichments.
func Ptr[T any](v T) *T { return &v }
