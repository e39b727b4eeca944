package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"stem-service/app"
	"stem-service/ddd/domain/service"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild catalog rows from the files under the output, samples and loops directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			c, err := app.NewContainer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			report, err := c.CatalogApp.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			for _, name := range report.UnrecognizedFiles {
				fmt.Fprintf(cmd.OutOrStdout(), "unrecognized: %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func renderReport(r *service.ReconcileReport) string {
	rows := [][]string{
		{"Tracks created", strconv.Itoa(r.TracksCreated)},
		{"Tracks backfilled", strconv.Itoa(r.TracksBackfilled)},
		{"Stems created", strconv.Itoa(r.StemsCreated)},
		{"Samples created", strconv.Itoa(r.SamplesCreated)},
		{"Loops created", strconv.Itoa(r.LoopsCreated)},
		{"Skipped", strconv.Itoa(r.Skipped)},
		{"Errors", strconv.Itoa(r.Errors)},
		{"Elapsed", r.Elapsed.Round(time.Millisecond).String()},
	}
	return renderTable([]string{"Item", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
