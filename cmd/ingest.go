package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"conversational-rag/internal/helper"
	"conversational-rag/internal/rag"
)

var dryRun bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Index documents into the vector store",
	Long: `Loads, chunks and embeds each file and adds the chunks to the index.
With --dry-run the chunks are printed and nothing is embedded or stored.
A running serve picks up the new entries after a restart or SIGHUP.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print chunks, do not embed or store")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if dryRun {
		pipeline, err := rag.NewRAG(&cfg.RAG, nil, nil, nil, nil)
		if err != nil {
			return err
		}
		for _, path := range args {
			chunks, err := pipeline.Prepare(ctx, path, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			log.Info().Str("file", path).Int("chunks", len(chunks)).Msg("Parsed content")
			helper.PrettyPrint(chunks)
		}
		return nil
	}

	c, err := build(ctx, cfg, buildOpts{})
	if err != nil {
		return err
	}
	defer c.Close()

	failed := 0
	for _, path := range args {
		n, err := c.rag.Ingest(ctx, path, filepath.Base(path))
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Error ingesting document")
			failed++
			continue
		}
		cmd.Printf("%s: %d chunks indexed\n", path, n)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
