package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/ufogalaxy/devicelink/internal/link"
)

var errLinkTimeout = errors.New("timed out waiting for the link")

// sendCmd connects, sends one frame and disconnects
func sendCmd() *cobra.Command {
	var (
		content string
		action  string
		payload string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a single chat or command frame",
		Example: `  devicelink send --content "hello"
  devicelink send --action screenshot --payload '{"scale":0.5}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (content == "") == (action == "") {
				return errors.New("exactly one of --content or --action is required")
			}

			var params map[string]any
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &params); err != nil {
					return fmt.Errorf("invalid --payload: %w", err)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return runSend(ctx, cfg.ToLinkConfig(), nil, func(c *link.Client) bool {
				if action != "" {
					return c.SendCommand(action, params)
				}
				return c.SendChat(content)
			})
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "chat content to send")
	cmd.Flags().StringVar(&action, "action", "", "command action to send")
	cmd.Flags().StringVar(&payload, "payload", "", "command payload as a JSON object")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for the link")

	return cmd
}

// runSend waits for the link, hands the client to send, and waits until the
// frame has been written before disconnecting.
func runSend(ctx context.Context, lc *link.Config, opts []link.Option, send func(*link.Client) bool) error {
	logger := slog.Default()

	connected := make(chan struct{}, 1)
	failed := make(chan error, 1)
	handler := link.HandlerFuncs{
		Connected: func() {
			select {
			case connected <- struct{}{}:
			default:
			}
		},
		Error: func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	}

	opts = append([]link.Option{link.WithLogger(logger)}, opts...)
	client := link.New(lc, handler, opts...)
	defer client.Close()

	client.Connect()

	select {
	case <-connected:
	case err := <-failed:
		return err
	case <-ctx.Done():
		return errLinkTimeout
	}

	if !send(client) {
		return link.ErrNotConnected
	}
	// Frames leave in queue order, so once the sent count reaches the queued
	// count observed after our send, our frame is on the wire.
	target := client.Stats().MessagesQueued

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for client.Stats().MessagesSent < target {
		select {
		case err := <-failed:
			return err
		case <-ctx.Done():
			return errLinkTimeout
		case <-ticker.C:
		}
	}

	logger.Info("sent", "device_id", client.DeviceID())
	client.Disconnect()
	return nil
}
