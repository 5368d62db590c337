package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	convertOutput string
	convertFrom   string
	convertTo     string
)

var convertCmd = &cobra.Command{
	Use:   "convert [input]",
	Short: "Convert a document to another format",
	Long: `Imports the input into a document and exports it again. Formats are taken
from the file extensions unless --from or --to is given. Use -o - to write to
standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output file, or - for stdout")
	convertCmd.Flags().StringVar(&convertFrom, "from", "", "Input format (txt, md, html, json, docx, pdf, csv)")
	convertCmd.Flags().StringVar(&convertTo, "to", "", "Output format (txt, md, html, json, docx, csv)")
	_ = convertCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	to := convertTo
	if to == "" && convertOutput == "-" {
		return fmt.Errorf("--to is required when writing to stdout")
	}
	outFormat, err := pickFormat(convertOutput, to)
	if err != nil {
		return err
	}

	res, err := importFile(cmd.Context(), args[0], convertFrom)
	if err != nil {
		return err
	}
	out, err := registry.Export(cmd.Context(), outFormat, res.Doc, res.Metadata.Title)
	if err != nil {
		return fmt.Errorf("export %s: %w", outFormat, err)
	}

	if convertOutput == "-" {
		_, err = cmd.OutOrStdout().Write(out.Data)
		return err
	}
	if err := os.WriteFile(convertOutput, out.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("converted", "input", args[0], "output", convertOutput,
		"from", res.Metadata.Format, "to", outFormat, "bytes", len(out.Data))
	return nil
}
