package cfg

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"mediadl/internal/domain/keys"
	"mediadl/internal/formats"
	"mediadl/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// formatsCmd lists the options the format selector offers for a catalog.
func formatsCmd() (*cobra.Command, error) {
	var (
		catalogPath string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the download options of a format catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := readCatalog(catalogPath)
			if err != nil {
				return err
			}
			options := formats.Filter(catalog)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(options)
			}
			return writeOptions(cmd.OutOrStdout(), options)
		},
	}

	// Local only; 'get' binds the catalog key to viper.
	cmd.Flags().StringVarP(&catalogPath, keys.GetCatalog, "c", "", "JSON file listing the item's formats")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the options as JSON")
	if err := cmd.MarkFlagRequired(keys.GetCatalog); err != nil {
		return nil, err
	}
	return cmd, nil
}

// writeOptions prints one row per option.
func writeOptions(w io.Writer, options []models.Format) error {
	if len(options) == 0 {
		_, err := fmt.Fprintln(w, "No downloadable formats found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUALITY\tTYPE\tBITRATE\tSIZE")
	for _, f := range options {
		size := "-"
		if f.ContentLength > 0 {
			size = humanize.Bytes(uint64(f.ContentLength))
		}
		bitrate := "-"
		if f.Bitrate > 0 {
			bitrate = humanize.SI(float64(f.Bitrate), "bps")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", optionLabel(f), f.Extension, bitrate, size)
	}
	return tw.Flush()
}
