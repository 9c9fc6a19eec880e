package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newEmbeddingsCmd(load containerLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embeddings",
		Short: "Maintain product embeddings",
	}
	cmd.AddCommand(newEmbeddingsBackfillCmd(load))
	return cmd
}

func newEmbeddingsBackfillCmd(load containerLoader) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed every product that has no embedding yet and wait for the jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := load(false)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.ConsumerService.Consume(cmd.Context()); err != nil {
				return fmt.Errorf("start embedding consumer: %w", err)
			}

			queued, err := c.CatalogService.BackfillEmbeddings(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queued: %d\n", queued)
			if queued == 0 {
				return nil
			}

			deadline := time.Now().Add(timeout)
			for {
				pending, err := c.CatalogService.PendingEmbeddings(cmd.Context())
				if err != nil {
					return err
				}
				if pending == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "all products embedded")
					return nil
				}
				if time.Now().After(deadline) {
					return fmt.Errorf("%d products still without embedding after %s", pending, timeout)
				}
				time.Sleep(time.Second)
			}
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the queued jobs")
	return cmd
}
