package commands

// Command to list the tokens recorded in the seen store

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
	"xrpl-listing-bot/internal/features/detector"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	seenSource string
	seenYAML   bool
)

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "List tokens recorded as seen",
	RunE:  runSeen,
}

func init() {
	seenCmd.Flags().StringVar(&seenSource, "source", "", "Only list tokens of this source")
	seenCmd.Flags().BoolVar(&seenYAML, "yaml", false, "Print YAML instead of a table")
}

func runSeen(cmd *cobra.Command, args []string) error {
	det, err := openDetector(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer det.Close()

	records := filterRecords(det.Records(), seenSource)
	if seenYAML {
		return writeRecordsYAML(cmd.OutOrStdout(), records)
	}
	return writeRecordsTable(cmd.OutOrStdout(), records)
}

func filterRecords(records []detector.SeenToken, source string) []detector.SeenToken {
	if source == "" {
		return records
	}
	var out []detector.SeenToken
	for _, r := range records {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out
}

func writeRecordsYAML(w io.Writer, records []detector.SeenToken) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if records == nil {
		records = []detector.SeenToken{}
	}
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func writeRecordsTable(w io.Writer, records []detector.SeenToken) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tTOKEN\tFIRST SEEN")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Source, r.TokenID, r.FirstSeen.UTC().Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d tokens\n", len(records))
	return err
}
