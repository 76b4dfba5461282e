package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/formby-guide/guide-cli/internal/checkpoint"
	"github.com/formby-guide/guide-cli/internal/enrich"
	"github.com/formby-guide/guide-cli/internal/pipeline"
)

var (
	hygieneCategories  []string
	hygieneRetryFailed bool
)

var hygieneCmd = &cobra.Command{
	Use:   "hygiene",
	Short: "Enrich businesses with FSA food hygiene ratings",
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

		provider := enrich.NewHygiene(initFSA(), enrich.HygieneOptions{
			StripSuffixes: cfg.Locality.StripSuffixes,
		})

		ckpt := checkpoint.NewStore(filepath.Join(cfg.Enrich.CheckpointDir, "fsa-progress.json"))
		p := pipeline.New(st, ckpt, provider, pipeline.Options{
			Categories:  hygieneScope(hygieneCategories, cfg.FSA.Categories),
			BatchSize:   cfg.Enrich.BatchSize,
			RetryFailed: hygieneRetryFailed,
		})

		summary, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "hygiene run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// hygieneScope picks the category filter for a hygiene run: explicit
// --category flags win, otherwise the configured food categories apply so a
// bare run never issues FSA searches for non-food records.
func hygieneScope(flags, configured []string) []string {
	if len(flags) > 0 {
		return flags
	}
	return configured
}

func init() {
	hygieneCmd.Flags().StringSliceVar(&hygieneCategories, "category", nil, "restrict to category slugs (default: configured food categories)")
	hygieneCmd.Flags().BoolVar(&hygieneRetryFailed, "retry-failed", false, "re-attempt records recorded as failed")
	rootCmd.AddCommand(hygieneCmd)
}
