package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

type Config struct {
	LogLevel string         `json:"log_level"`
	Audio    AudioConfig    `json:"audio"`
	Playback PlaybackConfig `json:"playback"`
	Store    StoreConfig    `json:"store"`
}

type AudioConfig struct {
	DeviceID   string `json:"device_id"`
	SampleRate int    `json:"sample_rate"`
	// Encodings is the capture encoding preference order, best first.
	// Empty means use the platform profile's list.
	Encodings []string `json:"encodings"`
	// TimesliceMS is the incremental delivery interval requested from
	// the capture device, where the platform supports it.
	TimesliceMS int `json:"timeslice_ms"`
	// StopWaitMS bounds the wait for the capture device's completion
	// signal after stop. Safety net, not a tuning knob: some devices
	// never signal at all.
	StopWaitMS int `json:"stop_wait_ms"`
}

type PlaybackConfig struct {
	// ReadyWaitMS bounds the wait for the output device's buffering
	// readiness before playing anyway.
	ReadyWaitMS int `json:"ready_wait_ms"`
}

type StoreConfig struct {
	Path string `json:"path"`
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := configPath()

	cfg := &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			DeviceID:    "",
			SampleRate:  16000,
			TimesliceMS: 250,
			StopWaitMS:  3000,
		},
		Playback: PlaybackConfig{
			ReadyWaitMS: 3000,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataPath(), "recordings.db"),
		},
	}

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (a AudioConfig) Timeslice() time.Duration {
	return time.Duration(a.TimesliceMS) * time.Millisecond
}

func (a AudioConfig) StopWait() time.Duration {
	return time.Duration(a.StopWaitMS) * time.Millisecond
}

func (p PlaybackConfig) ReadyWait() time.Duration {
	return time.Duration(p.ReadyWaitMS) * time.Millisecond
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "sayback", "config.json")
}

// dataPath returns the platform-specific data directory path
func dataPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, "sayback")
}
