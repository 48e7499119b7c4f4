package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		content       string // empty: no file
		env           map[string]string
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T, string)
		expectedError bool
	}{
		{
			name: "NewFile_Defaults",
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Sensors.Provider != "mock" {
					t.Errorf("expected default provider 'mock', got '%s'", cfg.Sensors.Provider)
				}
				if cfg.Vario.SmoothingAlpha != 0.2 {
					t.Errorf("expected alpha 0.2, got %v", cfg.Vario.SmoothingAlpha)
				}
				if cfg.Audio.MuteCooldown.Std() != time.Second {
					t.Errorf("expected 1s cooldown, got %v", cfg.Audio.MuteCooldown.Std())
				}
			},
			checkFile: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				for _, want := range []string{"provider: mock", "# Options: beep, null", "barometer_rate_hz: 60", "milestone: 5km"} {
					if !strings.Contains(string(content), want) {
						t.Errorf("config file missing %q", want)
					}
				}
			},
		},
		{
			name:    "ExistingFile_ZeroLiftThreshold",
			content: "audio:\n  lift_threshold: 0\n",
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Audio.LiftThreshold != 0 {
					t.Errorf("expected lift threshold 0, got %v", cfg.Audio.LiftThreshold)
				}
				if cfg.Audio.SinkThreshold != -2.0 {
					t.Errorf("expected default sink threshold -2, got %v", cfg.Audio.SinkThreshold)
				}
			},
		},
		{
			name:    "ExistingFile_Override",
			content: "vario:\n  smoothing_alpha: 0.5\naudio:\n  mute_cooldown: 2s\nexport:\n  pilot: Jane\n",
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Vario.SmoothingAlpha != 0.5 {
					t.Errorf("expected alpha 0.5, got %v", cfg.Vario.SmoothingAlpha)
				}
				if cfg.Audio.MuteCooldown.Std() != 2*time.Second {
					t.Errorf("expected 2s cooldown, got %v", cfg.Audio.MuteCooldown.Std())
				}
				if cfg.Export.Pilot != "Jane" {
					t.Errorf("expected pilot Jane, got %q", cfg.Export.Pilot)
				}
				if cfg.Vario.HistorySize != 30 {
					t.Errorf("defaults should survive merge, got history %d", cfg.Vario.HistorySize)
				}
			},
			checkFile: func(t *testing.T, path string) {
				content, _ := os.ReadFile(path)
				if strings.Contains(string(content), "barometer_rate_hz") {
					t.Error("existing file must not be rewritten")
				}
			},
		},
		{
			name: "Env_Overrides",
			env: map[string]string{
				EnvGPSPort:    "/dev/ttyUSB0",
				EnvMQTTBroker: "tcp://broker:1883",
			},
			validate: func(t *testing.T, cfg *Config) {
				if !cfg.Sensors.GPS.Enabled || cfg.Sensors.GPS.Port != "/dev/ttyUSB0" {
					t.Errorf("gps override not applied: %+v", cfg.Sensors.GPS)
				}
				if !cfg.Telemetry.MQTT.Enabled || cfg.Telemetry.MQTT.Broker != "tcp://broker:1883" {
					t.Errorf("mqtt override not applied: %+v", cfg.Telemetry.MQTT)
				}
				if cfg.Telemetry.NATS.Enabled {
					t.Error("nats should stay disabled")
				}
			},
			checkFile: func(t *testing.T, path string) {
				content, _ := os.ReadFile(path)
				if strings.Contains(string(content), "ttyUSB0") {
					t.Error("env overrides must not be saved")
				}
			},
		},
		{
			name:          "Invalid_Alpha",
			content:       "vario:\n  smoothing_alpha: 1.5\n",
			expectedError: true,
		},
		{
			name:          "Malformed_YAML",
			content:       "vario: [\n",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "configs", "skyvario.yaml")
			if tt.content != "" {
				if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(configPath, []byte(tt.content), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			}
			for _, k := range []string{EnvGPSPort, EnvMQTTBroker, EnvNATSURL} {
				t.Setenv(k, tt.env[k])
			}

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if err == nil {
				tt.validate(t, cfg)
				if tt.checkFile != nil {
					tt.checkFile(t, configPath)
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad provider", func(c *Config) { c.Sensors.Provider = "xplane" }, "sensors.provider"},
		{"zero baro rate", func(c *Config) { c.Sensors.BarometerRateHz = 0 }, "barometer_rate_hz"},
		{"inverted thresholds", func(c *Config) { c.Audio.SinkThreshold = 1 }, "audio thresholds"},
		{"bad device", func(c *Config) { c.Audio.Device = "alsa" }, "audio.device"},
		{"negative cooldown", func(c *Config) { c.Audio.MuteCooldown = Duration(-time.Second) }, "mute_cooldown"},
		{"empty history", func(c *Config) { c.Vario.HistorySize = 0 }, "history_size"},
		{"no milestone", func(c *Config) { c.Ticker.Milestone = 0 }, "ticker.milestone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "default_config.yaml")

	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("GenerateDefault() did not create file")
	}
	if err := GenerateDefault(configPath); err != nil {
		t.Errorf("GenerateDefault() error on second run = %v", err)
	}
}
