package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ufogalaxy/devicelink/internal/config"
)

func main() {
	var (
		logLevel  string
		logFormat string
		gateway   string
		deviceID  string
	)

	rootCmd := &cobra.Command{
		Use:   "devicelink",
		Short: "devicelink - device-to-gateway link client",
		Long: `devicelink keeps a device registered with its coordinating gateway
over a persistent WebSocket, with heartbeats and automatic reconnection.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = logFormat
			}
			if cmd.Flags().Changed("url") {
				cfg.Gateway.URL = gateway
			}
			if cmd.Flags().Changed("device-id") {
				cfg.Device.ID = deviceID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			setupLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flags.StringVar(&gateway, "url", "", "gateway WebSocket URL")
	flags.StringVar(&deviceID, "device-id", "", "device id announced at registration")

	rootCmd.AddCommand(
		connectCmd(),
		sendCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Current configuration:")
			fmt.Fprintln(w)

			fmt.Fprintln(w, "Gateway:")
			fmt.Fprintf(w, "  URL: %s\n", maskURL(cfg.Gateway.URL))
			fmt.Fprintln(w)

			fmt.Fprintln(w, "Device:")
			fmt.Fprintf(w, "  ID:           %s\n", orNotSet(cfg.Device.ID))
			fmt.Fprintf(w, "  Type:         %s\n", cfg.Device.Type)
			fmt.Fprintf(w, "  Name:         %s\n", cfg.Device.Name)
			fmt.Fprintf(w, "  Capabilities: %s\n", joinOrNone(cfg.Device.Capabilities))
			fmt.Fprintf(w, "  Groups:       %s\n", joinOrNone(cfg.Device.Groups))
			fmt.Fprintf(w, "  Tags:         %s\n", joinOrNone(cfg.Device.Tags))
			fmt.Fprintln(w)

			fmt.Fprintln(w, "Link:")
			fmt.Fprintf(w, "  Heartbeat:        %dms\n", cfg.Link.HeartbeatIntervalMs)
			fmt.Fprintf(w, "  Reconnect delay:  %dms x attempt\n", cfg.Link.ReconnectBaseDelayMs)
			fmt.Fprintf(w, "  Max attempts:     %d\n", cfg.Link.MaxReconnectAttempts)
			fmt.Fprintf(w, "  Handshake:        %dms\n", cfg.Link.HandshakeTimeoutMs)
			fmt.Fprintf(w, "  Send queue:       %d\n", cfg.Link.SendQueueSize)
			fmt.Fprintln(w)

			fmt.Fprintln(w, "Status server:")
			fmt.Fprintf(w, "  Address: %s\n", orNotSet(cfg.Server.MetricsAddr))
			fmt.Fprintf(w, "  Tracing: %s\n", boolStatus(cfg.Tracing.Enabled))
			fmt.Fprintln(w)

			fmt.Fprintln(w, "Environment variables:")
			fmt.Fprintln(w, "  DEVICELINK_CONFIG, DEVICELINK_URL")
			fmt.Fprintln(w, "  DEVICELINK_DEVICE_ID, DEVICELINK_DEVICE_TYPE, DEVICELINK_DEVICE_NAME")
			fmt.Fprintln(w, "  DEVICELINK_CAPABILITIES, DEVICELINK_GROUPS, DEVICELINK_TAGS")
			fmt.Fprintln(w, "  DEVICELINK_HEARTBEAT_INTERVAL_MS, DEVICELINK_RECONNECT_BASE_DELAY_MS, DEVICELINK_MAX_RECONNECT_ATTEMPTS")
			fmt.Fprintln(w, "  DEVICELINK_HANDSHAKE_TIMEOUT_MS, DEVICELINK_WRITE_TIMEOUT_MS, DEVICELINK_SEND_QUEUE_SIZE")
			fmt.Fprintln(w, "  DEVICELINK_METRICS_ADDR, DEVICELINK_LOG_LEVEL, DEVICELINK_LOG_FORMAT, DEVICELINK_TRACING")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "devicelink %s\n", version)
			fmt.Fprintf(w, "  Commit:     %s\n", commit)
			fmt.Fprintf(w, "  Build Date: %s\n", buildDate)
		},
	}
}
