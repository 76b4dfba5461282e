// Package model defines the domain types shared across the guide-cli pipelines.
package model

import "time"

// Business is a local directory record enriched from external providers.
// Provider-sourced fields are pointers; nil means the provider has never
// supplied a value.
type Business struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	CategorySlug string   `json:"category_slug"`
	Address      *string  `json:"address,omitempty"`
	Postcode     *string  `json:"postcode,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`

	// External identifiers, one per provider.
	PlaceID *string `json:"place_id,omitempty"`
	FHRSID  *string `json:"fhrs_id,omitempty"`

	// Provider-sourced fields.
	Phone             *string       `json:"phone,omitempty"`
	Website           *string       `json:"website,omitempty"`
	Rating            *float64      `json:"rating,omitempty"`
	ReviewCount       *int          `json:"review_count,omitempty"`
	PriceRange        *string       `json:"price_range,omitempty"`
	OpeningHours      *OpeningHours `json:"opening_hours,omitempty"`
	ShortDescription  *string       `json:"short_description,omitempty"`
	HygieneRating     *string       `json:"hygiene_rating,omitempty"`
	HygieneRatingDate *time.Time    `json:"hygiene_rating_date,omitempty"`
	HygieneRatingShow *bool         `json:"hygiene_rating_show,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// OpeningHours is the normalized opening-hours shape stored as JSONB.
type OpeningHours struct {
	WeekdayText []string `json:"weekdayText"`
	OpenNow     *bool    `json:"openNow,omitempty"`
	Periods     []Period `json:"periods,omitempty"`
}

// Period is one open/close span as reported by the provider.
type Period struct {
	Open  DayTime  `json:"open"`
	Close *DayTime `json:"close,omitempty"`
}

// DayTime is a weekday (0 = Sunday) plus an HHMM time string.
type DayTime struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

// NewBusiness is a harvested candidate record prior to enrichment.
type NewBusiness struct {
	ID           string
	Name         string
	Slug         string
	CategorySlug string
	Address      string
	Lat          float64
	Lng          float64
	PlaceID      string
}
