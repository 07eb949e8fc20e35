package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate when a configuration value cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Output      OutputConfig      `yaml:"output"`
	Display     DisplayConfig     `yaml:"display"`
	Log         LogConfig         `yaml:"log"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// AcquisitionConfig contains the sampling and spectral estimation parameters.
// All values are read once at startup.
type AcquisitionConfig struct {
	Capacity     int           `yaml:"capacity"`      // Rolling history length N (samples)
	SampleRate   float64       `yaml:"sample_rate"`   // Assumed sampling rate fs (Hz)
	Sensitivity  float64       `yaml:"sensitivity"`   // Sensor sensitivity k (mV per mT)
	Units        string        `yaml:"units"`         // Physical units after scaling, used in the PSD header
	Overlap      float64       `yaml:"overlap"`       // Welch segment overlap fraction, [0,1)
	MaxSegment   int           `yaml:"max_segment"`   // Upper bound for the Welch segment length
	MinSegment   int           `yaml:"min_segment"`   // Segments shorter than this are not estimated
	TickInterval time.Duration `yaml:"tick_interval"` // Acquisition loop period
}

// OutputConfig contains persistence targets. Empty paths disable the sink.
type OutputConfig struct {
	SamplesFile string `yaml:"samples_file"`
	PSDFile     string `yaml:"psd_file"`
	HistoryDB   string `yaml:"history_db"`
}

// DisplayConfig contains live display parameters.
type DisplayConfig struct {
	MaxPoints int `yaml:"max_points"` // Decimate the time series to at most this many points
	Smoothing int `yaml:"smoothing"`  // Moving average length for the displayed trace (0 = off)
}

// LogConfig contains logging parameters.
type LogConfig struct {
	Level string `yaml:"level"`
}

// MockConfig contains mock transport configuration.
type MockConfig struct {
	Format     string        `yaml:"format"`      // csv, labeled or bare
	Frequency  float64       `yaml:"frequency"`   // Tone frequency (Hz)
	Amplitude  float64       `yaml:"amplitude"`   // Tone amplitude (mV)
	Offset     float64       `yaml:"offset"`      // DC offset (mV)
	NoiseLevel float64       `yaml:"noise_level"` // Peak noise (mV)
	SampleRate time.Duration `yaml:"sample_rate"` // Interval between generated lines
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Acquisition: AcquisitionConfig{
			Capacity:     512,
			SampleRate:   10.0,
			Sensitivity:  30, // A2 @3.3V; 60 for A1 @3.3V
			Units:        "T^2",
			Overlap:      0.5,
			MaxSegment:   256,
			MinSegment:   16,
			TickInterval: 100 * time.Millisecond,
		},
		Output: OutputConfig{
			SamplesFile: "hall_data.csv",
			PSDFile:     "hall_psd.csv",
		},
		Display: DisplayConfig{
			MaxPoints: 1000,
			Smoothing: 0,
		},
		Log: LogConfig{
			Level: "info",
		},
		Mock: MockConfig{
			Format:     "csv",
			Frequency:  1.5,
			Amplitude:  200,
			Offset:     1650,
			NoiseLevel: 5,
			SampleRate: 100 * time.Millisecond, // 10 Hz
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports values the acquisition pipeline cannot work with.
func (c *Config) Validate() error {
	a := c.Acquisition
	switch {
	case a.Capacity < 1:
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalid, a.Capacity)
	case a.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive, got %g", ErrInvalid, a.SampleRate)
	case a.Sensitivity <= 0:
		return fmt.Errorf("%w: sensitivity must be positive, got %g", ErrInvalid, a.Sensitivity)
	case a.Overlap < 0 || a.Overlap >= 1:
		return fmt.Errorf("%w: overlap must be in [0,1), got %g", ErrInvalid, a.Overlap)
	case a.MinSegment > a.MaxSegment:
		return fmt.Errorf("%w: min_segment %d exceeds max_segment %d", ErrInvalid, a.MinSegment, a.MaxSegment)
	case a.TickInterval <= 0:
		return fmt.Errorf("%w: tick_interval must be positive, got %s", ErrInvalid, a.TickInterval)
	case c.Mock.SampleRate <= 0:
		return fmt.Errorf("%w: mock sample_rate must be positive, got %s", ErrInvalid, c.Mock.SampleRate)
	}

	switch c.Mock.Format {
	case "csv", "labeled", "bare":
	default:
		return fmt.Errorf("%w: unknown mock format %q", ErrInvalid, c.Mock.Format)
	}

	return nil
}

// LogLevel maps the configured level name to a slog level. Unknown names map to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Acquisition.Capacity == 0 {
		c.Acquisition.Capacity = def.Acquisition.Capacity
	}
	if c.Acquisition.SampleRate == 0 {
		c.Acquisition.SampleRate = def.Acquisition.SampleRate
	}
	if c.Acquisition.Sensitivity == 0 {
		c.Acquisition.Sensitivity = def.Acquisition.Sensitivity
	}
	if c.Acquisition.Units == "" {
		c.Acquisition.Units = def.Acquisition.Units
	}
	if c.Acquisition.MaxSegment == 0 {
		c.Acquisition.MaxSegment = def.Acquisition.MaxSegment
	}
	if c.Acquisition.MinSegment == 0 {
		c.Acquisition.MinSegment = def.Acquisition.MinSegment
	}
	if c.Acquisition.TickInterval == 0 {
		c.Acquisition.TickInterval = def.Acquisition.TickInterval
	}

	if c.Display.MaxPoints == 0 {
		c.Display.MaxPoints = def.Display.MaxPoints
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.Mock.Format == "" {
		c.Mock.Format = def.Mock.Format
	}
	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.Frequency == 0 {
		c.Mock.Frequency = def.Mock.Frequency
	}
}
