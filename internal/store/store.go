// Package store persists the business directory. Two backends implement the
// same interface: Postgres (pgxpool) and SQLite (modernc.org/sqlite).
package store

import (
	"context"

	"github.com/formby-guide/guide-cli/internal/model"
)

// ListFilter specifies criteria for listing businesses.
type ListFilter struct {
	// CategorySlugs restricts the listing to the given categories.
	// Empty means all.
	CategorySlugs []string
}

// DatasetCounts summarizes enrichment coverage for the status command.
type DatasetCounts struct {
	Total       int64 `json:"total"`
	WithPlaceID int64 `json:"with_place_id"`
	WithHygiene int64 `json:"with_hygiene_rating"`
}

// Store defines the persistence interface for the enrichment pipelines.
type Store interface {
	// ListBusinesses returns businesses matching the filter. Ordering is
	// left to the caller.
	ListBusinesses(ctx context.Context, filter ListFilter) ([]model.Business, error)

	// ApplyEnrichment merges provider output into one business under a
	// per-record transaction. Field semantics follow the merge policy
	// table: external identifiers overwrite, everything else fills
	// forward (a nil value never erases stored data). The row's
	// last-modified timestamp is always stamped.
	ApplyEnrichment(ctx context.Context, businessID string, e model.Enrichment) error

	// DeleteBusiness removes a business outright (terminal
	// permanently-closed signal).
	DeleteBusiness(ctx context.Context, businessID string) error

	// InsertBusinesses bulk-inserts harvested candidates,
	// first-seen-wins on the provider identifier.
	InsertBusinesses(ctx context.Context, businesses []model.NewBusiness) (int64, error)

	// Counts reports dataset coverage totals.
	Counts(ctx context.Context) (*DatasetCounts, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
