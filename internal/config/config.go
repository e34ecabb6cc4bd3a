package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ufogalaxy/devicelink/internal/link"
	"github.com/ufogalaxy/devicelink/pkg/protocol"
)

// Config holds all configuration for devicelink
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Device  DeviceConfig  `json:"device"`
	Link    LinkConfig    `json:"link"`
	Server  ServerConfig  `json:"server"`
	Log     LogConfig     `json:"log"`
	Tracing TracingConfig `json:"tracing"`
}

// GatewayConfig holds the coordinating server endpoint
type GatewayConfig struct {
	URL string `json:"url"` // WebSocket URL (e.g., ws://localhost:8765/ws)
}

// DeviceConfig is the identity announced at registration
type DeviceConfig struct {
	ID           string   `json:"id"` // empty: a fresh id is minted per process
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	OSVersion    string   `json:"os_version"`
	AppVersion   string   `json:"app_version"`
	Capabilities []string `json:"capabilities"`
	Groups       []string `json:"groups"`
	Tags         []string `json:"tags"`
}

// LinkConfig holds connection lifecycle tuning
type LinkConfig struct {
	HeartbeatIntervalMs  int `json:"heartbeat_interval_ms"`   // 0 disables heartbeats
	ReconnectBaseDelayMs int `json:"reconnect_base_delay_ms"` // multiplied by the attempt number
	MaxReconnectAttempts int `json:"max_reconnect_attempts"`  // ceiling before giving up
	HandshakeTimeoutMs   int `json:"handshake_timeout_ms"`
	WriteTimeoutMs       int `json:"write_timeout_ms"`
	SendQueueSize        int `json:"send_queue_size"`
}

// ServerConfig holds the local status server configuration
type ServerConfig struct {
	MetricsAddr string `json:"metrics_addr"` // empty disables /metrics, /healthz and /status
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text or json
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"service_name"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	hostname, _ := os.Hostname()

	return &Config{
		Gateway: GatewayConfig{
			URL: "ws://localhost:8765/ws",
		},
		Device: DeviceConfig{
			Type:         string(protocol.DeviceLinux),
			Name:         hostname,
			Capabilities: []string{},
			Groups:       []string{},
			Tags:         []string{},
		},
		Link: LinkConfig{
			HeartbeatIntervalMs:  30000,
			ReconnectBaseDelayMs: 3000,
			MaxReconnectAttempts: 5,
			HandshakeTimeoutMs:   10000,
			WriteTimeoutMs:       10000,
			SendQueueSize:        64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			ServiceName: "devicelink",
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envBool loads a boolean environment variable into the target pointer if set and valid
func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from the config file and environment variables
func Load() (*Config, error) {
	return LoadFile(getConfigPath())
}

// LoadFile is Load with an explicit config file path. A missing file is not
// an error; a malformed one is.
func LoadFile(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Gateway
	envString("DEVICELINK_URL", &cfg.Gateway.URL)

	// Device identity
	envString("DEVICELINK_DEVICE_ID", &cfg.Device.ID)
	envString("DEVICELINK_DEVICE_TYPE", &cfg.Device.Type)
	envString("DEVICELINK_DEVICE_NAME", &cfg.Device.Name)
	envStringSlice("DEVICELINK_CAPABILITIES", &cfg.Device.Capabilities)
	envStringSlice("DEVICELINK_GROUPS", &cfg.Device.Groups)
	envStringSlice("DEVICELINK_TAGS", &cfg.Device.Tags)

	// Link tuning
	envInt("DEVICELINK_HEARTBEAT_INTERVAL_MS", &cfg.Link.HeartbeatIntervalMs)
	envInt("DEVICELINK_RECONNECT_BASE_DELAY_MS", &cfg.Link.ReconnectBaseDelayMs)
	envInt("DEVICELINK_MAX_RECONNECT_ATTEMPTS", &cfg.Link.MaxReconnectAttempts)
	envInt("DEVICELINK_HANDSHAKE_TIMEOUT_MS", &cfg.Link.HandshakeTimeoutMs)
	envInt("DEVICELINK_WRITE_TIMEOUT_MS", &cfg.Link.WriteTimeoutMs)
	envInt("DEVICELINK_SEND_QUEUE_SIZE", &cfg.Link.SendQueueSize)

	// Observability
	envString("DEVICELINK_METRICS_ADDR", &cfg.Server.MetricsAddr)
	envString("DEVICELINK_LOG_LEVEL", &cfg.Log.Level)
	envString("DEVICELINK_LOG_FORMAT", &cfg.Log.Format)
	envBool("DEVICELINK_TRACING", &cfg.Tracing.Enabled)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isValidWSURL validates that a URL is a ws:// or wss:// endpoint
func isValidWSURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && (u.Scheme == "ws" || u.Scheme == "wss") && u.Host != ""
}

var deviceTypes = map[protocol.DeviceType]bool{
	protocol.DeviceAndroid: true,
	protocol.DeviceIOS:     true,
	protocol.DeviceWindows: true,
	protocol.DeviceMacOS:   true,
	protocol.DeviceLinux:   true,
	protocol.DeviceIoT:     true,
	protocol.DeviceBrowser: true,
	protocol.DeviceCustom:  true,
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.URL == "" {
		errs = append(errs, "gateway URL is required")
	} else if !isValidWSURL(c.Gateway.URL) {
		errs = append(errs, "gateway URL must be a ws:// or wss:// URL")
	}

	if c.Device.Type != "" && !deviceTypes[protocol.DeviceType(c.Device.Type)] {
		errs = append(errs, fmt.Sprintf("unknown device type %q", c.Device.Type))
	}

	if c.Link.HeartbeatIntervalMs < 0 {
		errs = append(errs, "heartbeat_interval_ms must not be negative")
	}
	if c.Link.ReconnectBaseDelayMs < 1 {
		errs = append(errs, "reconnect_base_delay_ms must be positive")
	}
	if c.Link.MaxReconnectAttempts < 0 {
		errs = append(errs, "max_reconnect_attempts must not be negative")
	}
	if c.Link.HandshakeTimeoutMs < 1 {
		errs = append(errs, "handshake_timeout_ms must be positive")
	}
	if c.Link.WriteTimeoutMs < 1 {
		errs = append(errs, "write_timeout_ms must be positive")
	}
	if c.Link.SendQueueSize < 1 {
		errs = append(errs, "send_queue_size must be at least 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log level %q must be debug, info, warn or error", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, "log format must be 'text' or 'json'")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DeviceInfo returns the registration payload for this device
func (c *Config) DeviceInfo() protocol.DeviceInfo {
	return protocol.DeviceInfo{
		DeviceID:     c.Device.ID,
		DeviceType:   protocol.DeviceType(c.Device.Type),
		DeviceName:   c.Device.Name,
		Manufacturer: c.Device.Manufacturer,
		Model:        c.Device.Model,
		OSVersion:    c.Device.OSVersion,
		AppVersion:   c.Device.AppVersion,
		Capabilities: c.Device.Capabilities,
		Groups:       c.Device.Groups,
		Tags:         c.Device.Tags,
	}
}

// ToLinkConfig converts the file configuration to a link client configuration
func (c *Config) ToLinkConfig() *link.Config {
	return &link.Config{
		URL:                  c.Gateway.URL,
		DeviceID:             c.Device.ID,
		Device:               c.DeviceInfo(),
		HeartbeatInterval:    ms(c.Link.HeartbeatIntervalMs),
		ReconnectBaseDelay:   ms(c.Link.ReconnectBaseDelayMs),
		MaxReconnectAttempts: c.Link.MaxReconnectAttempts,
		HandshakeTimeout:     ms(c.Link.HandshakeTimeoutMs),
		WriteTimeout:         ms(c.Link.WriteTimeoutMs),
		SendQueueSize:        c.Link.SendQueueSize,
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("DEVICELINK_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	// Check ~/.config/devicelink/config.json first
	configPath := filepath.Join(homeDir, ".config", "devicelink", "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	// Check ~/.devicelink/config.json
	altPath := filepath.Join(homeDir, ".devicelink", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
