// Package cli implements the bedit command line: file conversion and
// document inspection without a server.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoulee21/bedit/internal/config"
	"github.com/thoulee21/bedit/internal/format"
	"github.com/thoulee21/bedit/internal/wordcodec"
)

var version = "dev"

var (
	configPath string
	verbose    bool
)

// Set up by the root command before any subcommand runs.
var (
	cfg      config.Config
	logger   *slog.Logger
	registry *format.Registry
)

var rootCmd = &cobra.Command{
	Use:           "bedit",
	Short:         "Convert and inspect rich-text documents",
	Long:          `bedit converts documents between txt, md, html, json, docx, pdf and csv, and reports their outline and statistics.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log conversion details")
}

func setup(logOut io.Writer) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Level()
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	registry = format.NewRegistry(format.Options{
		MaxInputBytes:        cfg.MaxUploadBytes,
		SanitizeHTML:         cfg.SanitizeHTML,
		MinifyHTML:           cfg.MinifyHTML,
		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
		Codec:                wordcodec.NewCodec(cfg.CodecTimeout, logger),
		Logger:               logger,
	})
	return nil
}

// Execute runs the root command and reports any error on stderr.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
