package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"conversational-rag/internal/chromemdb"
	"conversational-rag/internal/config"
	"conversational-rag/internal/db"
	"conversational-rag/internal/embedding"
	"conversational-rag/internal/helper"
	"conversational-rag/internal/llmservice"
	"conversational-rag/internal/rag"
)

const configFilePath = "./configs/config.yaml"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "conversational-rag",
	Short:         "Conversational LLM backend with document retrieval",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		helper.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configFilePath, "path to the YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// components holds what a command needs; unused parts stay nil.
type components struct {
	index *chromemdb.VectorDBManager
	store *db.Store
	rag   *rag.RAG
}

type buildOpts struct {
	inference bool
	store     bool
}

func build(ctx context.Context, cfg *config.Config, opts buildOpts) (*components, error) {
	c := &components{}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedder: %w", err)
	}

	c.index, err = newIndex(cfg)
	if err != nil {
		return nil, err
	}

	var llm rag.Completer
	if opts.inference {
		client, err := llmservice.NewClient(&cfg.InferenceLLM)
		if err != nil {
			return nil, fmt.Errorf("error initializing inference client: %w", err)
		}
		llm = client
	}

	var convLog rag.ConversationLogger
	if opts.store {
		bunDB, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("error connecting to database: %w", err)
		}
		if err := db.InitDB(ctx, bunDB); err != nil {
			bunDB.Close()
			return nil, fmt.Errorf("error initializing database: %w", err)
		}
		c.store = db.NewStore(bunDB)
		convLog = c.store
	}

	c.rag, err = rag.NewRAG(&cfg.RAG, embedder, c.index, llm, convLog)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func newIndex(cfg *config.Config) (*chromemdb.VectorDBManager, error) {
	if !cfg.RAG.InMemory {
		if err := helper.CreateFolder(cfg.RAG.DBPath); err != nil {
			return nil, err
		}
	}
	index, err := chromemdb.NewVectorDBManager(chromemdb.Options{
		DBPath:         cfg.RAG.DBPath,
		CollectionName: cfg.RAG.CollectionName,
		InMemory:       cfg.RAG.InMemory,
		Compress:       cfg.RAG.Compress,
		EncryptionKey:  cfg.RAG.EncryptionKey,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating vector database manager: %w", err)
	}
	return index, nil
}

func (c *components) Close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database")
		}
	}
}
