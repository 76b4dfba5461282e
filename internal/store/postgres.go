package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/formby-guide/guide-cli/internal/db"
	"github.com/formby-guide/guide-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                TEXT NOT NULL,
	slug                TEXT NOT NULL UNIQUE,
	category_slug       TEXT NOT NULL,
	address             TEXT,
	postcode            TEXT,
	lat                 DOUBLE PRECISION,
	lng                 DOUBLE PRECISION,
	place_id            TEXT UNIQUE,
	fhrs_id             TEXT,
	phone               TEXT,
	website             TEXT,
	rating              DOUBLE PRECISION,
	review_count        INTEGER,
	price_range         TEXT,
	opening_hours       JSONB,
	short_description   TEXT,
	hygiene_rating      TEXT,
	hygiene_rating_date TIMESTAMPTZ,
	hygiene_rating_show BOOLEAN,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category_slug);
CREATE INDEX IF NOT EXISTS idx_businesses_name ON businesses(name);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const businessColumns = `id, name, slug, category_slug, address, postcode, lat, lng,
	place_id, fhrs_id, phone, website, rating, review_count, price_range,
	opening_hours, short_description, hygiene_rating, hygiene_rating_date,
	hygiene_rating_show, updated_at`

// ListBusinesses returns businesses, optionally filtered by category.
func (s *PostgresStore) ListBusinesses(ctx context.Context, filter ListFilter) ([]model.Business, error) {
	sql := `SELECT ` + businessColumns + ` FROM businesses`
	var args []any
	if len(filter.CategorySlugs) > 0 {
		sql += ` WHERE category_slug = ANY($1)`
		args = append(args, filter.CategorySlugs)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list businesses")
	}
	defer rows.Close()

	var businesses []model.Business
	for rows.Next() {
		var b model.Business
		var hours *string
		if err := rows.Scan(
			&b.ID, &b.Name, &b.Slug, &b.CategorySlug, &b.Address, &b.Postcode,
			&b.Lat, &b.Lng, &b.PlaceID, &b.FHRSID, &b.Phone, &b.Website,
			&b.Rating, &b.ReviewCount, &b.PriceRange, &hours,
			&b.ShortDescription, &b.HygieneRating, &b.HygieneRatingDate,
			&b.HygieneRatingShow, &b.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		if hours != nil {
			var oh model.OpeningHours
			if err := json.Unmarshal([]byte(*hours), &oh); err == nil {
				b.OpeningHours = &oh
			}
		}
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list businesses rows")
	}
	return businesses, nil
}

// ApplyEnrichment merges provider output under a per-record transaction.
func (s *PostgresStore) ApplyEnrichment(ctx context.Context, businessID string, e model.Enrichment) error {
	fields, err := enrichmentFields(e)
	if err != nil {
		return err
	}
	sql, args := buildMergeSQL("businesses", businessID, fields, time.Now().UTC(), pgPlaceholder)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin merge")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: merge business %s", businessID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: merge business %s: no such row", businessID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: commit merge %s", businessID)
	}
	return nil
}

// DeleteBusiness removes one business.
func (s *PostgresStore) DeleteBusiness(ctx context.Context, businessID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM businesses WHERE id = $1`, businessID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete business %s", businessID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: delete business %s: no such row", businessID)
	}
	return nil
}

// InsertBusinesses bulk-inserts harvested candidates, first-seen-wins on
// place_id.
func (s *PostgresStore) InsertBusinesses(ctx context.Context, businesses []model.NewBusiness) (int64, error) {
	rows := make([][]any, 0, len(businesses))
	now := time.Now().UTC()
	for _, b := range businesses {
		rows = append(rows, []any{
			b.ID, b.Name, b.Slug, b.CategorySlug, b.Address, b.Lat, b.Lng, b.PlaceID, now,
		})
	}

	n, err := db.BulkInsertIgnore(ctx, s.pool, db.UpsertConfig{
		Table:        "businesses",
		Columns:      []string{"id", "name", "slug", "category_slug", "address", "lat", "lng", "place_id", "updated_at"},
		ConflictKeys: []string{"place_id"},
	}, rows)
	if err != nil {
		return n, eris.Wrap(err, "postgres: insert businesses")
	}
	return n, nil
}

// Counts reports dataset coverage totals.
func (s *PostgresStore) Counts(ctx context.Context) (*DatasetCounts, error) {
	var c DatasetCounts
	err := s.pool.QueryRow(ctx,
		`SELECT count(*), count(place_id), count(hygiene_rating) FROM businesses`,
	).Scan(&c.Total, &c.WithPlaceID, &c.WithHygiene)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: counts")
	}
	return &c, nil
}
