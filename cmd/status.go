package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/formby-guide/guide-cli/internal/checkpoint"
)

type statusReport struct {
	Total       int64          `json:"total"`
	WithPlaceID int64          `json:"with_place_id"`
	WithHygiene int64          `json:"with_hygiene"`
	Checkpoints map[string]any `json:"checkpoints"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report dataset coverage and checkpoint progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		counts, err := st.Counts(ctx)
		if err != nil {
			return eris.Wrap(err, "store counts")
		}

		report := statusReport{
			Total:       counts.Total,
			WithPlaceID: counts.WithPlaceID,
			WithHygiene: counts.WithHygiene,
			Checkpoints: make(map[string]any),
		}
		for name, file := range map[string]string{
			"enrich":  "enrichment-progress.json",
			"hygiene": "fsa-progress.json",
		} {
			state := checkpoint.NewStore(filepath.Join(cfg.Enrich.CheckpointDir, file)).Load()
			processed, failed := state.Counts()
			report.Checkpoints[name] = map[string]int{
				"processed": processed,
				"failed":    failed,
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
