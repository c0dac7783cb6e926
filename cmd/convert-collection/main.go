package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ricesearch/irtools/internal/app"
	"github.com/ricesearch/irtools/internal/collection"
	"github.com/ricesearch/irtools/internal/config"
	"github.com/ricesearch/irtools/internal/pkg/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(errors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "convert-collection",
		Short: "Convert a JSON-lines collection into docsNN.json shards",
		Long: `Reads every file of --collection_path in name order, keeps documents with a
non-empty text field and writes them as {"id", "contents"} lines into
docs00.json, docs01.json, ... under --output_folder, at most
--max_docs_per_file documents per file.

Examples:
  convert-collection --collection_path wiki-pages --output_folder collection_jsonl
  convert-collection --collection_path in --output_folder out --max_docs_per_file 500000 --manifest`,
		Args:         cobra.NoArgs,
		RunE:         runConvert,
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.StringP("config", "c", "", "config file path")
	flags.String("collection_path", "", "directory of JSON-lines input files")
	flags.String("output_folder", "", "directory receiving the shard files")
	flags.Int("max_docs_per_file", 1000000, "maximum number of documents per shard")
	flags.String("text_field", collection.DefaultTextField, "input field holding the document text")
	flags.Int("progress_interval", collection.DefaultProgressInterval, "documents between progress notices")
	flags.Bool("manifest", false, "write manifest.json with shard checksums")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("convert-collection %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})

	return rootCmd
}

// loadConfig reads the config file and environment, then applies flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("collection_path") {
		cfg.Collection.CollectionPath, _ = flags.GetString("collection_path")
	}
	if flags.Changed("output_folder") {
		cfg.Collection.OutputFolder, _ = flags.GetString("output_folder")
	}
	if flags.Changed("max_docs_per_file") {
		cfg.Collection.MaxDocsPerFile, _ = flags.GetInt("max_docs_per_file")
	}
	if flags.Changed("text_field") {
		cfg.Collection.TextField, _ = flags.GetString("text_field")
	}
	if flags.Changed("progress_interval") {
		cfg.Collection.ProgressInterval, _ = flags.GetInt("progress_interval")
	}
	if flags.Changed("manifest") {
		cfg.Collection.Manifest, _ = flags.GetBool("manifest")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Collection.CollectionPath == "" || cfg.Collection.OutputFolder == "" {
		return nil, errors.ValidationError("--collection_path and --output_folder are required")
	}
	return cfg, nil
}

func runConvert(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			rt.Log.Warn("Shutdown incomplete", "error", closeErr)
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Converting collection...")

	sharder := collection.NewSharder(rt.Log, rt.Bus, rt.Metrics)
	_, err = sharder.Shard(ctx, collection.Options{
		InputDir:         cfg.Collection.CollectionPath,
		OutputDir:        cfg.Collection.OutputFolder,
		MaxDocsPerFile:   cfg.Collection.MaxDocsPerFile,
		ProgressInterval: cfg.Collection.ProgressInterval,
		TextField:        cfg.Collection.TextField,
		Manifest:         cfg.Collection.Manifest,
		OnProgress: func(p collection.Progress) {
			fmt.Fprintf(out, "Converted %d docs in %d files\n", p.Documents, p.Shards)
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Done!")
	return nil
}
