package main

import (
	"context"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
}

var indexExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the collection to a file",
	Long: `Writes the collection to file, or next to rag.db_path when omitted.
The export is gzip compressed when rag.compress is set and encrypted when
rag.encryption_key is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := newIndex(cfg)
		if err != nil {
			return err
		}
		if err := index.Export(context.Background(), firstArg(args)); err != nil {
			return err
		}
		cmd.Printf("exported %d entries\n", index.Count())
		return nil
	},
}

var indexImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a collection written by export",
	Long: `Loads a collection written by export into rag.db_path.
A running serve picks up the imported entries after a restart or SIGHUP.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := newIndex(cfg)
		if err != nil {
			return err
		}
		if err := index.Import(context.Background(), firstArg(args)); err != nil {
			return err
		}
		cmd.Printf("imported, %d entries in collection\n", index.Count())
		return nil
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of indexed chunks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := newIndex(cfg)
		if err != nil {
			return err
		}
		cmd.Printf("collection %s: %d entries\n", cfg.RAG.CollectionName, index.Count())
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexExportCmd, indexImportCmd, indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
