package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"conversational-rag/internal/api"
	"conversational-rag/internal/helper"
	"conversational-rag/internal/watcher"
)

var watchDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP API. When a watch directory is configured, files
dropped into it are indexed in the background.

Entries added to a persistent index by another process (ingest, index
import) become visible after a restart or after sending SIGHUP.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&watchDir, "watch", "", "inbox directory to index files from (overrides rag.watch_dir)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, cfg, buildOpts{inference: true, store: true})
	if err != nil {
		return err
	}
	defer c.Close()

	if err := helper.CreateFolder(cfg.RAG.UploadDir); err != nil {
		return err
	}

	if watchDir != "" {
		cfg.RAG.WatchDir = watchDir
	}
	if cfg.RAG.WatchDir != "" {
		w, err := watcher.New(cfg.RAG.WatchDir, time.Duration(cfg.RAG.WatchDelayMs)*time.Millisecond, c.rag)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Inbox watcher stopped")
			}
		}()
	}

	server := api.NewServer(cfg, api.Deps{
		Chat:          c.rag,
		Ingest:        c.rag,
		Users:         c.store,
		Conversations: c.store,
	})

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := c.index.Reload(); err != nil {
					log.Error().Err(err).Msg("Failed to reload vector index")
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
