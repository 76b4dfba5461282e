package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/formby-guide/guide-cli/internal/export"
)

var (
	exportOut        string
	exportCategories []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the directory to an XLSX workbook",
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

		out := exportOut
		if out == "" {
			out = export.Filename(time.Now())
		}

		n, err := export.Write(ctx, st, out, exportCategories)
		if err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("path", out), zap.Int("businesses", n))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default formby-guide-<date>.xlsx)")
	exportCmd.Flags().StringSliceVar(&exportCategories, "category", nil, "restrict to category slugs (repeatable)")
	rootCmd.AddCommand(exportCmd)
}
