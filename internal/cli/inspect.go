package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoulee21/bedit/internal/metrics"
	"github.com/thoulee21/bedit/internal/outline"
)

var (
	inspectFrom string
	inspectJSON bool
)

var outlineCmd = &cobra.Command{
	Use:   "outline [file]",
	Short: "Print the heading outline of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutline,
}

var statsCmd = &cobra.Command{
	Use:   "stats [file]",
	Short: "Print character, word and line counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	for _, c := range []*cobra.Command{outlineCmd, statsCmd} {
		c.Flags().StringVar(&inspectFrom, "from", "", "Input format, when the extension does not tell")
		c.Flags().BoolVar(&inspectJSON, "json", false, "Print JSON")
		rootCmd.AddCommand(c)
	}
}

func runOutline(cmd *cobra.Command, args []string) error {
	res, err := importFile(cmd.Context(), args[0], inspectFrom)
	if err != nil {
		return err
	}
	entries := outline.Extract(res.Doc)
	if inspectJSON {
		if entries == nil {
			entries = []outline.Entry{}
		}
		return printJSON(cmd, entries)
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", strings.Repeat("  ", e.Level-1), e.Text)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	res, err := importFile(cmd.Context(), args[0], inspectFrom)
	if err != nil {
		return err
	}
	c := metrics.Compute(res.Doc)
	if inspectJSON {
		return printJSON(cmd, c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "characters: %d\nwords:      %d\nlines:      %d\n", c.Characters, c.Words, c.Lines)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
