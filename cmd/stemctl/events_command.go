package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stem-service/ddd/domain/gateway"
	"stem-service/pkg/kafka"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow job events published to Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled {
				return errors.New("kafka is disabled in the configuration")
			}
			client, err := kafka.New(cfg.Kafka)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			reader := client.Reader(cfg.Kafka.Topics.JobEvents, group)
			defer func() { _ = reader.Close() }()

			out := cmd.OutOrStdout()
			for {
				msg, err := reader.ReadMessage(cmd.Context())
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				var ev gateway.JobEvent
				if err := json.Unmarshal(msg.Value, &ev); err != nil {
					fmt.Fprintf(out, "skip malformed event offset=%d: %v\n", msg.Offset, err)
					continue
				}
				fmt.Fprintln(out, formatEvent(ev))
			}
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Consumer group; empty follows the newest offset")
	return cmd
}

func formatEvent(ev gateway.JobEvent) string {
	line := fmt.Sprintf("%s  %-8s %s  %s", ev.At.Format("15:04:05"), ev.Type, ev.JobID, ev.Status)
	if ev.Message != "" {
		line += "  " + ev.Message
	}
	if ev.AudioName != "" {
		line += fmt.Sprintf("  (%s, %d stems)", ev.AudioName, len(ev.Stems))
	}
	return line
}
