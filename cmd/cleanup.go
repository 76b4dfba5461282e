package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/formby-guide/guide-cli/internal/cleanup"
)

var (
	cleanupRulesPath string
	cleanupDryRun    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove non-visitor-economy businesses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rules := cleanup.DefaultRules()
		if cleanupRulesPath != "" {
			var err error
			rules, err = cleanup.LoadRules(cleanupRulesPath)
			if err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		pruner, err := cleanup.New(st, rules)
		if err != nil {
			return err
		}

		summary, err := pruner.Run(ctx, cleanupDryRun)
		if err != nil {
			return eris.Wrap(err, "cleanup run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupRulesPath, "rules", "", "YAML deny-list rules file (built-in rules when omitted)")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "report matches without deleting")
	rootCmd.AddCommand(cleanupCmd)
}
