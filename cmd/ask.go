package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	askUser string
	askLog  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask a question against the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", "cli", "user id recorded with the turn")
	askCmd.Flags().BoolVar(&askLog, "log", false, "record the turn in the conversation log")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.Join(args, " ")

	c, err := build(ctx, cfg, buildOpts{inference: true, store: askLog})
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.rag.Chat(ctx, askUser, query)
	if err != nil {
		return err
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	cmd.Printf("%s\n\n", query)

	log.Info().Msg("Context: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	cmd.Printf("%s\n\n", resp.Context)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	cmd.Printf("%s\n\n", resp.Response)
	return nil
}
