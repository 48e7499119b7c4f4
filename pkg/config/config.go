package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the YAML file.
const (
	EnvGPSPort    = "SKYVARIO_GPS_PORT"
	EnvMQTTBroker = "SKYVARIO_MQTT_BROKER"
	EnvNATSURL    = "SKYVARIO_NATS_URL"
)

// Config holds the application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Ticker    TickerConfig    `yaml:"ticker"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Vario     VarioConfig     `yaml:"vario"`
	Audio     AudioConfig     `yaml:"audio"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Export    ExportConfig    `yaml:"export"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
	Trace    bool        `yaml:"trace"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// TickerConfig holds the snapshot tick used for track recording and publishing.
type TickerConfig struct {
	Interval  Duration `yaml:"interval"`
	Milestone Distance `yaml:"milestone"` // distance between journal milestones
}

// SensorsConfig selects and tunes the sensor suite.
type SensorsConfig struct {
	Provider        string         `yaml:"provider"` // "mock", "hardware"
	BarometerRateHz float64        `yaml:"barometer_rate_hz"`
	AccelRateHz     float64        `yaml:"accel_rate_hz"`
	GPS             GPSConfig      `yaml:"gps"`
	Hardware        HardwareConfig `yaml:"hardware"`
	Mock            MockConfig     `yaml:"mock"`
}

// GPSConfig holds the serial NMEA receiver settings.
type GPSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
	Baud    uint   `yaml:"baud"`
}

// HardwareConfig holds the SPI wiring of the on-board sensors.
type HardwareConfig struct {
	Barometer     bool   `yaml:"barometer"`
	BarometerSPI  string `yaml:"barometer_spi"`
	Accelerometer bool   `yaml:"accelerometer"`
	AccelSPI      string `yaml:"accel_spi"`
	AccelCS       string `yaml:"accel_cs"`
}

// MockConfig holds settings for the simulated sensor suite.
type MockConfig struct {
	StartLat      float64  `yaml:"start_lat"`
	StartLon      float64  `yaml:"start_lon"`
	StartAlt      float64  `yaml:"start_alt"`
	StartHeading  float64  `yaml:"start_heading"`
	Airspeed      float64  `yaml:"airspeed"` // m/s
	Scenario      string   `yaml:"scenario"` // "thermal", "glide", "sink"
	PhaseDuration Duration `yaml:"phase_duration"`
	NoiseHPa      float64  `yaml:"noise_hpa"`
	Lux           float64  `yaml:"lux"`
	Disable       []string `yaml:"disable"`
	FailStart     []string `yaml:"fail_start"`
}

// VarioConfig tunes the vertical speed estimator.
type VarioConfig struct {
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	HistorySize    int     `yaml:"history_size"`
}

// AudioConfig holds the tone synthesizer settings.
type AudioConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Device        string        `yaml:"device"` // "beep", "null"
	SampleRate    int           `yaml:"sample_rate"`
	SinkThreshold float64       `yaml:"sink_threshold"`
	LiftThreshold float64       `yaml:"lift_threshold"`
	MuteCooldown  Duration      `yaml:"mute_cooldown"`
	Muted         bool          `yaml:"muted"`
	Headset       HeadsetConfig `yaml:"headset"`
}

// HeadsetConfig holds the optional bandpass applied to the output.
type HeadsetConfig struct {
	Enabled    bool    `yaml:"enabled"`
	LowCutoff  float64 `yaml:"low_cutoff"`
	HighCutoff float64 `yaml:"high_cutoff"`
}

// TelemetryConfig holds the snapshot publishers.
type TelemetryConfig struct {
	MQTT MQTTConfig `yaml:"mqtt"`
	NATS NATSConfig `yaml:"nats"`
}

// MQTTConfig holds MQTT publisher settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// NATSConfig holds NATS publisher settings.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// ExportConfig holds IGC export settings.
type ExportConfig struct {
	Dir        string `yaml:"dir"`
	Auto       bool   `yaml:"auto"`
	Pilot      string `yaml:"pilot"`
	GliderType string `yaml:"glider_type"`
	GliderID   string `yaml:"glider_id"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		Server: ServerConfig{
			Address: "localhost:1921",
		},
		Ticker: TickerConfig{
			Interval:  Duration(1 * time.Second),
			Milestone: Distance(5000),
		},
		Sensors: SensorsConfig{
			Provider:        "mock",
			BarometerRateHz: 60,
			AccelRateHz:     10,
			GPS: GPSConfig{
				Port: "/dev/ttyAMA0",
				Baud: 9600,
			},
			Hardware: HardwareConfig{
				BarometerSPI: "/dev/spidev0.1",
				AccelSPI:     "/dev/spidev0.0",
				AccelCS:      "GPIO8",
			},
			Mock: MockConfig{
				StartLat:      46.6863,
				StartLon:      7.8632,
				StartAlt:      1800,
				StartHeading:  90,
				Airspeed:      10,
				Scenario:      "thermal",
				PhaseDuration: Duration(30 * time.Second),
				NoiseHPa:      0.01,
				Lux:           25000,
			},
		},
		Vario: VarioConfig{
			SmoothingAlpha: 0.2,
			HistorySize:    30,
		},
		Audio: AudioConfig{
			Enabled:       true,
			Device:        "beep",
			SampleRate:    48000,
			SinkThreshold: -2.0,
			LiftThreshold: 0.2,
			MuteCooldown:  Duration(1 * time.Second),
			Headset: HeadsetConfig{
				LowCutoff:  300,
				HighCutoff: 3400,
			},
		},
		Telemetry: TelemetryConfig{
			MQTT: MQTTConfig{
				Broker:      "tcp://localhost:1883",
				ClientID:    "skyvario",
				TopicPrefix: "skyvario",
			},
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				SubjectPrefix: "skyvario",
			},
		},
		Export: ExportConfig{
			Dir:        "./flights",
			Auto:       true,
			Pilot:      "Unknown",
			GliderType: "Unknown",
			GliderID:   "Unknown",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
// A .env file next to the working directory is loaded first; variables already set win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides deployment specific values from the environment.
// These are never written back to disk.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGPSPort); v != "" {
		c.Sensors.GPS.Port = v
		c.Sensors.GPS.Enabled = true
	}
	if v := os.Getenv(EnvMQTTBroker); v != "" {
		c.Telemetry.MQTT.Broker = v
		c.Telemetry.MQTT.Enabled = true
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.Telemetry.NATS.URL = v
		c.Telemetry.NATS.Enabled = true
	}
}

// Validate rejects values the instrument cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Sensors.Provider {
	case "mock", "hardware":
	default:
		errs = append(errs, fmt.Errorf("sensors.provider %q: must be mock or hardware", c.Sensors.Provider))
	}
	if c.Sensors.BarometerRateHz <= 0 || c.Sensors.BarometerRateHz > 200 {
		errs = append(errs, fmt.Errorf("sensors.barometer_rate_hz %v: must be in (0, 200]", c.Sensors.BarometerRateHz))
	}
	if c.Sensors.AccelRateHz <= 0 {
		errs = append(errs, fmt.Errorf("sensors.accel_rate_hz %v: must be positive", c.Sensors.AccelRateHz))
	}
	if c.Vario.SmoothingAlpha <= 0 || c.Vario.SmoothingAlpha > 1 {
		errs = append(errs, fmt.Errorf("vario.smoothing_alpha %v: must be in (0, 1]", c.Vario.SmoothingAlpha))
	}
	if c.Vario.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("vario.history_size %d: must be at least 1", c.Vario.HistorySize))
	}
	if c.Audio.SinkThreshold >= c.Audio.LiftThreshold {
		errs = append(errs, fmt.Errorf("audio thresholds: sink %v must be below lift %v", c.Audio.SinkThreshold, c.Audio.LiftThreshold))
	}
	if c.Audio.MuteCooldown < 0 {
		errs = append(errs, fmt.Errorf("audio.mute_cooldown %v: must not be negative", time.Duration(c.Audio.MuteCooldown)))
	}
	switch c.Audio.Device {
	case "beep", "null":
	default:
		errs = append(errs, fmt.Errorf("audio.device %q: must be beep or null", c.Audio.Device))
	}
	if c.Ticker.Milestone <= 0 {
		errs = append(errs, fmt.Errorf("ticker.milestone %v: must be positive", c.Ticker.Milestone.Meters()))
	}
	if time.Duration(c.Ticker.Interval) <= 0 {
		errs = append(errs, fmt.Errorf("ticker.interval %v: must be positive", time.Duration(c.Ticker.Interval)))
	}

	return errors.Join(errs...)
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# SkyVario Configuration
# -----------------------
# Supported Units:
#   Duration: ms, s, m, h (a bare number is seconds)
#   Distance: m, km, nm, mi, ft (a bare number is meters)
# Environment overrides: SKYVARIO_GPS_PORT, SKYVARIO_MQTT_BROKER, SKYVARIO_NATS_URL

`)
	data = append(header, data...)

	// Inject comments for enum fields
	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: mock, hardware\n${1}provider:"))

	reDevice := regexp.MustCompile(`(?m)^(\s+)device:`)
	data = reDevice.ReplaceAll(data, []byte("${1}# Options: beep, null\n${1}device:"))

	reScenario := regexp.MustCompile(`(?m)^(\s+)scenario:`)
	data = reScenario.ReplaceAll(data, []byte("${1}# Options: thermal, glide, sink\n${1}scenario:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
