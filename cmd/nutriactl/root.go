package main

import (
	"fmt"

	"nutria-assistant-be/internal/bootstrap"
	"nutria-assistant-be/internal/config"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/database"
	"nutria-assistant-be/pkg/store"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "nutriactl",
		Short:        "Operator tools for the NutrIA assistant",
		Long:         "nutriactl talks to the NutrIA pipeline from the terminal, maintains product embeddings and LLM credentials, and follows chat events.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stdout and the service log file")

	load := func(ephemeral bool) (*bootstrap.Container, error) {
		return loadContainer(verbose, ephemeral)
	}

	rootCmd.AddCommand(
		newChatCmd(load),
		newEmbeddingsCmd(load),
		newCredentialsCmd(load),
		newEventsCmd(),
	)
	return rootCmd
}

type containerLoader func(ephemeral bool) (*bootstrap.Container, error)

// loadContainer wires the same services as the REST server. An ephemeral
// container keeps conversation memory in process only.
func loadContainer(verbose, ephemeral bool) (*bootstrap.Container, error) {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	var opts []bootstrap.Option
	if !verbose {
		opts = append(opts, bootstrap.WithLogger(logger.NewNopLogger()))
	}
	if ephemeral {
		opts = append(opts, bootstrap.WithMemory(store.NewInMemoryStore()))
	}
	return bootstrap.NewContainer(db, cfg, opts...), nil
}
