package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk insert-or-ignore operation.
type UpsertConfig struct {
	Table        string   // target table
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
}

// BulkInsertIgnore inserts rows with INSERT ... ON CONFLICT DO NOTHING,
// implementing first-seen-wins semantics for harvested records. Returns the
// number of rows actually inserted.
func BulkInsertIgnore(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		cfg.Table,
		strings.Join(cfg.Columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(cfg.ConflictKeys, ", "),
	)

	var inserted int64
	for _, row := range rows {
		if len(row) != len(cfg.Columns) {
			return inserted, eris.Errorf("db: upsert: row has %d values, want %d", len(row), len(cfg.Columns))
		}
		tag, err := pool.Exec(ctx, sql, row...)
		if err != nil {
			return inserted, eris.Wrapf(err, "db: upsert into %s", cfg.Table)
		}
		inserted += tag.RowsAffected()
	}

	return inserted, nil
}
