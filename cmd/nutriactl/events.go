package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"nutria-assistant-be/internal/config"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/events"
	pktNats "nutria-assistant-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the chat event stream",
	}
	cmd.AddCommand(newEventsWatchCmd())
	return cmd
}

func newEventsWatchCmd() *cobra.Command {
	var (
		eventType string
		durable   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print chat events as they are published",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, logger.NewNopLogger())
			if err != nil {
				return fmt.Errorf("connect nats: %w", err)
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			err = sub.Subscribe(ctx, eventType, durable, func(_ context.Context, event events.Event) error {
				data, err := json.Marshal(event.Payload())
				if err != nil {
					return err
				}
				_, _ = color.New(color.FgYellow).Fprintf(out, "%s %s ", event.Timestamp().Format("15:04:05"), event.EventType())
				_, _ = fmt.Fprintln(out, string(data))
				return nil
			})
			if err != nil {
				return err
			}

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "*", "event type to follow, * for all")
	cmd.Flags().StringVar(&durable, "durable", "nutriactl-watch", "durable consumer name")
	return cmd
}
