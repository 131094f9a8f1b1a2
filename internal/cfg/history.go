package cfg

import (
	"fmt"
	"io"
	"text/tabwriter"

	"mediadl/internal/domain/keys"
	"mediadl/internal/models"
	"mediadl/internal/repo"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyCmd prints the most recent journal rows.
func historyCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent jobs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := viper.GetInt(keys.HistoryLimit)
			if limit < 1 {
				return fmt.Errorf("invalid %s %d, must be at least 1", keys.HistoryLimit, limit)
			}

			db, err := openJournal(viper.GetString(keys.DBPath))
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := repo.InitStores(db.DB).DownloadStore().GetRecentDownloads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeHistory(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().IntP(keys.HistoryLimit, "n", 20, "Number of jobs to list")
	return cmd, bindFlags(cmd.Flags())
}

// writeHistory prints one row per journal entry, newest first.
func writeHistory(w io.Writer, entries []models.JournalEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No jobs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UPDATED\tSTATUS\tPROGRESS\tTITLE\tDETAIL")
	for _, e := range entries {
		progress := fmt.Sprintf("%.0f%%", e.Percent*100)
		if e.Total > 0 {
			progress += " of " + humanize.Bytes(uint64(e.Total))
		}
		detail := e.OutputPath
		if e.Error != "" {
			detail = e.Error
		}
		title := e.Title
		if title == "" {
			title = e.JobID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(e.UpdatedAt), statusLabel(e.Status), progress, title, detail)
	}
	return tw.Flush()
}
