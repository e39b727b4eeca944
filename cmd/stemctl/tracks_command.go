package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stem-service/app"
	"stem-service/ddd/application/dto"
)

func newTracksCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "List catalogued tracks",
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

			tracks, err := c.CatalogApp.ListTracks(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, tracks)
			}
			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tracks")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTracks(tracks))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tracks as JSON")
	return cmd
}

func renderTracks(tracks []*dto.TrackDto) string {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{
			strconv.FormatUint(t.ID, 10),
			t.Name,
			strconv.Itoa(t.StemCount),
			optionalSeconds(t.BPM, "%.1f"),
			optionalSeconds(t.Duration, "%.2fs"),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Stems", "BPM", "Duration"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
	)
}

func optionalSeconds(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
