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
	enrichCategories  []string
	enrichRetryFailed bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich businesses with Google Places details",
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

		placesClient, err := initPlaces()
		if err != nil {
			return err
		}

		provider := enrich.NewPlaces(placesClient, enrich.PlacesOptions{
			Locality:         cfg.Locality.Name,
			DefaultLat:       cfg.Locality.Lat,
			DefaultLng:       cfg.Locality.Lng,
			BiasRadiusMetres: cfg.Locality.BiasRadiusMetres,
			StripSuffixes:    cfg.Locality.StripSuffixes,
		})

		ckpt := checkpoint.NewStore(filepath.Join(cfg.Enrich.CheckpointDir, "enrichment-progress.json"))
		p := pipeline.New(st, ckpt, provider, pipeline.Options{
			Categories:  enrichCategories,
			BatchSize:   cfg.Enrich.BatchSize,
			RetryFailed: enrichRetryFailed,
		})

		summary, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "enrich run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	enrichCmd.Flags().StringSliceVar(&enrichCategories, "category", nil, "restrict to category slugs (repeatable)")
	enrichCmd.Flags().BoolVar(&enrichRetryFailed, "retry-failed", false, "re-attempt records recorded as failed")
	rootCmd.AddCommand(enrichCmd)
}
