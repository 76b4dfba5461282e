package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/formby-guide/guide-cli/internal/discover"
)

var discoverDryRun bool

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Harvest candidate businesses from the search grid",
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

		h := discover.New(placesClient, st, discover.Options{
			MaxPages:    cfg.Discover.MaxPages,
			Concurrency: cfg.Discover.Concurrency,
			DryRun:      discoverDryRun,
		})

		summary, err := h.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "discover run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverDryRun, "dry-run", false, "sweep the grid without inserting")
	rootCmd.AddCommand(discoverCmd)
}
