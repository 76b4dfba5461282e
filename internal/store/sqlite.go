package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/formby-guide/guide-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Timestamps are
// stored as RFC 3339 text for portability.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	slug                TEXT NOT NULL UNIQUE,
	category_slug       TEXT NOT NULL,
	address             TEXT,
	postcode            TEXT,
	lat                 REAL,
	lng                 REAL,
	place_id            TEXT UNIQUE,
	fhrs_id             TEXT,
	phone               TEXT,
	website             TEXT,
	rating              REAL,
	review_count        INTEGER,
	price_range         TEXT,
	opening_hours       TEXT,
	short_description   TEXT,
	hygiene_rating      TEXT,
	hygiene_rating_date TEXT,
	hygiene_rating_show INTEGER,
	updated_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category_slug);
CREATE INDEX IF NOT EXISTS idx_businesses_name ON businesses(name);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListBusinesses returns businesses, optionally filtered by category.
func (s *SQLiteStore) ListBusinesses(ctx context.Context, filter ListFilter) ([]model.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses`
	var args []any
	if len(filter.CategorySlugs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.CategorySlugs)), ", ")
		query += ` WHERE category_slug IN (` + placeholders + `)`
		for _, slug := range filter.CategorySlugs {
			args = append(args, slug)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list businesses")
	}
	defer rows.Close() //nolint:errcheck

	var businesses []model.Business
	for rows.Next() {
		var b model.Business
		var hours, ratingDate *string
		var show *int
		var updatedAt string
		if err := rows.Scan(
			&b.ID, &b.Name, &b.Slug, &b.CategorySlug, &b.Address, &b.Postcode,
			&b.Lat, &b.Lng, &b.PlaceID, &b.FHRSID, &b.Phone, &b.Website,
			&b.Rating, &b.ReviewCount, &b.PriceRange, &hours,
			&b.ShortDescription, &b.HygieneRating, &ratingDate,
			&show, &updatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan business")
		}
		if hours != nil {
			var oh model.OpeningHours
			if err := json.Unmarshal([]byte(*hours), &oh); err == nil {
				b.OpeningHours = &oh
			}
		}
		if ratingDate != nil {
			if t, err := time.Parse(time.RFC3339, *ratingDate); err == nil {
				b.HygieneRatingDate = &t
			}
		}
		if show != nil {
			b.HygieneRatingShow = model.Ptr(*show != 0)
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			b.UpdatedAt = t
		}
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list businesses rows")
	}
	return businesses, nil
}

// ApplyEnrichment merges provider output under a per-record transaction.
func (s *SQLiteStore) ApplyEnrichment(ctx context.Context, businessID string, e model.Enrichment) error {
	fields, err := enrichmentFields(e)
	if err != nil {
		return err
	}
	for i := range fields {
		fields[i].value = sqliteValue(fields[i].value)
	}
	query, args := buildMergeSQL("businesses", businessID, fields, time.Now().UTC(), sqlitePlaceholder)
	for i := range args {
		args[i] = sqliteValue(args[i])
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin merge")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: merge business %s", businessID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: merge business %s: no such row", businessID)
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrapf(err, "sqlite: commit merge %s", businessID)
	}
	return nil
}

// sqliteValue converts values the sqlite driver cannot bind portably:
// timestamps become RFC 3339 text, booleans become 0/1 integers.
func sqliteValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return (*string)(nil)
		}
		return t.Format(time.RFC3339)
	case *bool:
		if t == nil {
			return (*int)(nil)
		}
		if *t {
			return 1
		}
		return 0
	}
	return v
}

// DeleteBusiness removes one business.
func (s *SQLiteStore) DeleteBusiness(ctx context.Context, businessID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = ?`, businessID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete business %s", businessID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: delete business %s: no such row", businessID)
	}
	return nil
}

// InsertBusinesses bulk-inserts harvested candidates, first-seen-wins on
// place_id.
func (s *SQLiteStore) InsertBusinesses(ctx context.Context, businesses []model.NewBusiness) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	var inserted int64
	for _, b := range businesses {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO businesses (id, name, slug, category_slug, address, lat, lng, place_id, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (place_id) DO NOTHING`,
			b.ID, b.Name, b.Slug, b.CategorySlug, b.Address, b.Lat, b.Lng, b.PlaceID, now,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "sqlite: insert business %s", b.Name)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, eris.Wrap(err, "sqlite: commit insert")
	}
	return inserted, nil
}

// Counts reports dataset coverage totals.
func (s *SQLiteStore) Counts(ctx context.Context) (*DatasetCounts, error) {
	var c DatasetCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), count(place_id), count(hygiene_rating) FROM businesses`,
	).Scan(&c.Total, &c.WithPlaceID, &c.WithHygiene)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: counts")
	}
	return &c, nil
}
