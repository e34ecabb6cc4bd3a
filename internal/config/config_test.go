package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ufogalaxy/devicelink/pkg/protocol"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Gateway.URL == "" {
		t.Error("Gateway URL should not be empty")
	}
	if cfg.Link.HeartbeatIntervalMs != 30000 {
		t.Errorf("expected heartbeat 30000ms, got %d", cfg.Link.HeartbeatIntervalMs)
	}
	if cfg.Link.ReconnectBaseDelayMs != 3000 {
		t.Errorf("expected base delay 3000ms, got %d", cfg.Link.ReconnectBaseDelayMs)
	}
	if cfg.Link.MaxReconnectAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Link.MaxReconnectAttempts)
	}
	if cfg.Device.Capabilities == nil || cfg.Device.Groups == nil || cfg.Device.Tags == nil {
		t.Error("Device slices should be initialized")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got: %v", err)
	}
}

func TestEnvString(t *testing.T) {
	target := "original"

	t.Run("sets value when env var exists", func(t *testing.T) {
		t.Setenv("TEST_VAR", "new_value")
		envString("TEST_VAR", &target)
		if target != "new_value" {
			t.Errorf("expected 'new_value', got '%s'", target)
		}
	})

	t.Run("does not change value when env var is empty", func(t *testing.T) {
		t.Setenv("TEST_VAR", "")
		target = "original"
		envString("TEST_VAR", &target)
		if target != "original" {
			t.Errorf("expected 'original', got '%s'", target)
		}
	})
}

func TestEnvInt(t *testing.T) {
	target := 42

	t.Run("parses valid integer", func(t *testing.T) {
		t.Setenv("TEST_INT", "100")
		envInt("TEST_INT", &target)
		if target != 100 {
			t.Errorf("expected 100, got %d", target)
		}
	})

	t.Run("ignores invalid integer", func(t *testing.T) {
		t.Setenv("TEST_INT", "not_a_number")
		target = 42
		envInt("TEST_INT", &target)
		if target != 42 {
			t.Errorf("expected 42, got %d", target)
		}
	})
}

func TestEnvBool(t *testing.T) {
	target := false

	t.Setenv("TEST_BOOL", "true")
	envBool("TEST_BOOL", &target)
	if !target {
		t.Error("expected true")
	}

	t.Setenv("TEST_BOOL", "maybe")
	envBool("TEST_BOOL", &target)
	if !target {
		t.Error("invalid value should leave target unchanged")
	}
}

func TestEnvStringSlice(t *testing.T) {
	target := []string{"original"}

	t.Run("trims and filters values", func(t *testing.T) {
		t.Setenv("TEST_SLICE", " camera ,, gps ,  ")
		envStringSlice("TEST_SLICE", &target)
		if len(target) != 2 || target[0] != "camera" || target[1] != "gps" {
			t.Errorf("expected [camera gps], got %v", target)
		}
	})

	t.Run("does not change value when env var is empty", func(t *testing.T) {
		t.Setenv("TEST_SLICE", "")
		target = []string{"original"}
		envStringSlice("TEST_SLICE", &target)
		if len(target) != 1 || target[0] != "original" {
			t.Errorf("expected [original], got %v", target)
		}
	})
}

func TestValidate_GatewayURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"ws", "ws://localhost:8765/ws", false},
		{"wss", "wss://gateway.example.com/ws", false},
		{"http is rejected", "http://localhost:8765", true},
		{"missing host", "ws://", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Gateway.URL = tt.url
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != nil && !strings.Contains(err.Error(), "gateway URL") {
				t.Errorf("error should mention gateway URL, got: %v", err)
			}
		})
	}
}

func TestValidate_Link(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LinkConfig)
		wantErr string
	}{
		{"heartbeat disabled", func(l *LinkConfig) { l.HeartbeatIntervalMs = 0 }, ""},
		{"no reconnects", func(l *LinkConfig) { l.MaxReconnectAttempts = 0 }, ""},
		{"negative heartbeat", func(l *LinkConfig) { l.HeartbeatIntervalMs = -1 }, "heartbeat_interval_ms"},
		{"zero base delay", func(l *LinkConfig) { l.ReconnectBaseDelayMs = 0 }, "reconnect_base_delay_ms"},
		{"negative attempts", func(l *LinkConfig) { l.MaxReconnectAttempts = -1 }, "max_reconnect_attempts"},
		{"zero handshake", func(l *LinkConfig) { l.HandshakeTimeoutMs = 0 }, "handshake_timeout_ms"},
		{"zero write timeout", func(l *LinkConfig) { l.WriteTimeoutMs = 0 }, "write_timeout_ms"},
		{"zero queue", func(l *LinkConfig) { l.SendQueueSize = 0 }, "send_queue_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg.Link)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %s, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_DeviceAndLog(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.Type = "toaster"
	cfg.Log.Level = "verbose"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"device type", "log level", "log format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := LoadFile(filepath.Join(dir, "absent.json"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Link.MaxReconnectAttempts != 5 {
			t.Errorf("expected default attempts, got %d", cfg.Link.MaxReconnectAttempts)
		}
	})

	t.Run("file then env", func(t *testing.T) {
		path := filepath.Join(dir, "config.json")
		content := `{
			"gateway": {"url": "wss://gw.example.com/ws"},
			"device": {"id": "dev_kitchen", "type": "iot", "capabilities": ["screen"]},
			"link": {"heartbeat_interval_ms": 5000, "max_reconnect_attempts": 2}
		}`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("DEVICELINK_MAX_RECONNECT_ATTEMPTS", "7")
		t.Setenv("DEVICELINK_TAGS", "kitchen,wall")

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Gateway.URL != "wss://gw.example.com/ws" {
			t.Errorf("unexpected URL %s", cfg.Gateway.URL)
		}
		if cfg.Link.HeartbeatIntervalMs != 5000 {
			t.Errorf("expected heartbeat from file, got %d", cfg.Link.HeartbeatIntervalMs)
		}
		if cfg.Link.MaxReconnectAttempts != 7 {
			t.Errorf("env should override file, got %d", cfg.Link.MaxReconnectAttempts)
		}
		if cfg.Link.ReconnectBaseDelayMs != 3000 {
			t.Errorf("unset keys keep defaults, got %d", cfg.Link.ReconnectBaseDelayMs)
		}
		if len(cfg.Device.Tags) != 2 || cfg.Device.Tags[1] != "wall" {
			t.Errorf("unexpected tags %v", cfg.Device.Tags)
		}
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		t.Setenv("DEVICELINK_URL", "http://not-a-socket")
		if _, err := LoadFile(filepath.Join(dir, "absent.json")); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestToLinkConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.ID = "dev_1"
	cfg.Device.Type = string(protocol.DeviceAndroid)
	cfg.Device.Capabilities = []string{protocol.CapabilityCamera}

	lc := cfg.ToLinkConfig()
	if lc.URL != cfg.Gateway.URL {
		t.Errorf("URL not carried over: %s", lc.URL)
	}
	if lc.DeviceID != "dev_1" || lc.Device.DeviceID != "dev_1" {
		t.Errorf("device id not carried over: %s / %s", lc.DeviceID, lc.Device.DeviceID)
	}
	if lc.Device.DeviceType != protocol.DeviceAndroid {
		t.Errorf("unexpected device type %s", lc.Device.DeviceType)
	}
	if lc.HeartbeatInterval != 30*time.Second {
		t.Errorf("expected 30s heartbeat, got %v", lc.HeartbeatInterval)
	}
	if lc.ReconnectBaseDelay != 3*time.Second {
		t.Errorf("expected 3s base delay, got %v", lc.ReconnectBaseDelay)
	}
	if lc.MaxReconnectAttempts != 5 || lc.SendQueueSize != 64 {
		t.Errorf("unexpected attempts/queue: %d/%d", lc.MaxReconnectAttempts, lc.SendQueueSize)
	}
}

func TestIsValidWSURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"ws://localhost:8765", true},
		{"wss://example.com/ws", true},
		{"http://localhost", false},
		{"localhost:8765", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isValidWSURL(tt.url); got != tt.want {
			t.Errorf("isValidWSURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Run("uses DEVICELINK_CONFIG env var when set", func(t *testing.T) {
		t.Setenv("DEVICELINK_CONFIG", "/custom/path/config.json")
		if path := getConfigPath(); path != "/custom/path/config.json" {
			t.Errorf("expected custom path, got %s", path)
		}
	})

	t.Run("defaults to .config/devicelink", func(t *testing.T) {
		t.Setenv("DEVICELINK_CONFIG", "")
		expected := filepath.Join(home, ".config", "devicelink", "config.json")
		if path := getConfigPath(); path != expected {
			t.Errorf("expected %s, got %s", expected, path)
		}
	})

	t.Run("falls back to .devicelink when it exists", func(t *testing.T) {
		t.Setenv("DEVICELINK_CONFIG", "")
		alt := filepath.Join(home, ".devicelink", "config.json")
		if err := os.MkdirAll(filepath.Dir(alt), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(alt, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if path := getConfigPath(); path != alt {
			t.Errorf("expected %s, got %s", alt, path)
		}
	})
}
