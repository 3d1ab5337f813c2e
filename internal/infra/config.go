package infra

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/shield_mon/internal/usecase"
)

// Monitor source names accepted in settings.yaml.
const (
	MonitorSourceRelay   = "relay"   // Host pushes transitions through the bridge
	MonitorSourceProcess = "process" // Built-in process table adapter
)

const (
	defaultScanInterval      = time.Second
	defaultHeartbeatInterval = 30 * time.Second
)

// Config is the daemon configuration.
type Config struct {
	SocketPath        string
	LogPath           string
	MonitorSource     string
	ScanInterval      time.Duration
	HeartbeatInterval time.Duration
	Notice            string
	CoverCommand      []string // Spawned to show the cover surface; empty means none
	HomeCommand       []string // Run after killing a blocked process
	SelectionCommand  []string // Prints the selection blob on stdout
}

type yamlConfig struct {
	SocketPath         string   `yaml:"socket_path"`
	LogPath            string   `yaml:"log_path"`
	MonitorSource      string   `yaml:"monitor_source"`
	ScanIntervalMillis int      `yaml:"scan_interval_ms"`
	HeartbeatSeconds   int      `yaml:"heartbeat_interval_seconds"`
	Notice             string   `yaml:"notice"`
	CoverCommand       []string `yaml:"cover_command"`
	HomeCommand        []string `yaml:"home_command"`
	SelectionCommand   []string `yaml:"selection_command"`
}

// DefaultConfig returns the configuration used when no settings file exists.
func DefaultConfig(mode *ExecModeConfig) Config {
	return Config{
		SocketPath:        mode.SocketPath,
		LogPath:           mode.LogPath,
		MonitorSource:     MonitorSourceProcess,
		ScanInterval:      defaultScanInterval,
		HeartbeatInterval: defaultHeartbeatInterval,
		Notice:            usecase.DefaultNotice,
	}
}

// LoadConfig reads settings.yaml at path over the defaults for mode.
// A missing file yields the defaults.
func LoadConfig(path string, mode *ExecModeConfig) (Config, error) {
	cfg := DefaultConfig(mode)

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlConfig
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return cfg, fmt.Errorf("parse settings yaml: %w", err)
	}

	if err := applyYamlConfig(&cfg, fileData); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyYamlConfig(cfg *Config, fileData yamlConfig) error {
	if fileData.SocketPath != "" {
		cfg.SocketPath = fileData.SocketPath
	}
	if fileData.LogPath != "" {
		cfg.LogPath = fileData.LogPath
	}

	switch fileData.MonitorSource {
	case "":
	case MonitorSourceRelay, MonitorSourceProcess:
		cfg.MonitorSource = fileData.MonitorSource
	default:
		return fmt.Errorf("invalid monitor_source %q (want %s or %s)",
			fileData.MonitorSource, MonitorSourceRelay, MonitorSourceProcess)
	}

	if fileData.ScanIntervalMillis > 0 {
		cfg.ScanInterval = time.Duration(fileData.ScanIntervalMillis) * time.Millisecond
	}
	if fileData.HeartbeatSeconds > 0 {
		cfg.HeartbeatInterval = time.Duration(fileData.HeartbeatSeconds) * time.Second
	}
	if fileData.Notice != "" {
		cfg.Notice = fileData.Notice
	}

	cfg.CoverCommand = fileData.CoverCommand
	cfg.HomeCommand = fileData.HomeCommand
	cfg.SelectionCommand = fileData.SelectionCommand
	return nil
}
