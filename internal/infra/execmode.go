package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents the execution mode of the application.
type ExecMode string

const (
	// ExecModeUser runs the shield for the invoking user (no sudo required)
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs the shield as root for the whole host
	ExecModeSystem ExecMode = "system"
)

// ExecModeConfig holds paths based on execution mode.
type ExecModeConfig struct {
	Mode       ExecMode
	DataDir    string // Encrypted snapshot store, key and instance record
	SocketPath string // Bridge unix socket
	ConfigPath string // settings.yaml
	LogPath    string // Daemon log file
	PlistDir   string // LaunchAgents (user) or LaunchDaemons (system)
	IsRoot     bool   // Whether running as root
}

const (
	socketFileName   = "shield.sock"
	configFileName   = "settings.yaml"
	logFileName      = "shieldmon.log"
	systemDataDir    = "/var/lib/shieldmon"
	systemConfigDir  = "/etc/shieldmon"
	userDataDirName  = ".shieldmon"
	systemLogDirName = "/var/log"
	systemPlistDir   = "/Library/LaunchDaemons"
	userPlistDir     = "Library/LaunchAgents"
)

// DetectExecMode determines the execution mode based on effective UID.
func DetectExecMode() *ExecModeConfig {
	if os.Geteuid() == 0 {
		return systemModeConfig()
	}
	home, _ := os.UserHomeDir()
	return userModeConfig(home, false)
}

// GetUserModeConfig returns user mode config regardless of current euid.
// When running under sudo, uses SUDO_USER to get the invoking user's home directory.
func GetUserModeConfig() *ExecModeConfig {
	return userModeConfig(GetRealUserHome(), os.Geteuid() == 0)
}

func systemModeConfig() *ExecModeConfig {
	return &ExecModeConfig{
		Mode:       ExecModeSystem,
		DataDir:    systemDataDir,
		SocketPath: filepath.Join(systemDataDir, socketFileName),
		ConfigPath: filepath.Join(systemConfigDir, configFileName),
		LogPath:    filepath.Join(systemLogDirName, logFileName),
		PlistDir:   systemPlistDir,
		IsRoot:     true,
	}
}

func userModeConfig(home string, isRoot bool) *ExecModeConfig {
	dataDir := filepath.Join(home, userDataDirName)
	return &ExecModeConfig{
		Mode:       ExecModeUser,
		DataDir:    dataDir,
		SocketPath: filepath.Join(dataDir, socketFileName),
		ConfigPath: filepath.Join(dataDir, configFileName),
		LogPath:    filepath.Join(dataDir, logFileName),
		PlistDir:   filepath.Join(home, userPlistDir),
		IsRoot:     isRoot,
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root, host-wide)"
	case ExecModeUser:
		return "user (non-root)"
	default:
		return "unknown"
	}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
