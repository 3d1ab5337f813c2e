package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectExecMode_ReturnsCorrectPaths(t *testing.T) {
	config := DetectExecMode()

	if os.Geteuid() == 0 {
		// Running as root (e.g., in CI with sudo)
		if config.Mode != ExecModeSystem {
			t.Errorf("expected system mode when euid=0, got %s", config.Mode)
		}
		if config.DataDir != "/var/lib/shieldmon" {
			t.Errorf("expected /var/lib/shieldmon, got %s", config.DataDir)
		}
		if config.ConfigPath != "/etc/shieldmon/settings.yaml" {
			t.Errorf("expected /etc/shieldmon/settings.yaml, got %s", config.ConfigPath)
		}
		return
	}

	if config.Mode != ExecModeUser {
		t.Errorf("expected user mode when euid!=0, got %s", config.Mode)
	}
	home, _ := os.UserHomeDir()
	expectedDataDir := filepath.Join(home, ".shieldmon")
	if config.DataDir != expectedDataDir {
		t.Errorf("expected %s, got %s", expectedDataDir, config.DataDir)
	}
}

func TestExecModeConfig_PathsAreConsistent(t *testing.T) {
	config := GetUserModeConfig()

	if filepath.Dir(config.SocketPath) != config.DataDir {
		t.Errorf("SocketPath (%s) should be inside DataDir (%s)", config.SocketPath, config.DataDir)
	}
	if filepath.Base(config.ConfigPath) != "settings.yaml" {
		t.Errorf("ConfigPath should end with 'settings.yaml', got %s", config.ConfigPath)
	}
	if config.Mode != ExecModeUser {
		t.Errorf("GetUserModeConfig mode = %s, want user", config.Mode)
	}
}

func TestExecMode_String(t *testing.T) {
	tests := []struct {
		mode     ExecMode
		expected string
	}{
		{ExecModeUser, "user (non-root)"},
		{ExecModeSystem, "system (root, host-wide)"},
		{ExecMode("invalid"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := tt.mode.String(); got != tt.expected {
				t.Errorf("ExecMode.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetRealUserHome_UnknownSudoUserFallsBack(t *testing.T) {
	t.Setenv("SUDO_USER", "no-such-user-for-shieldmon-tests")

	home, _ := os.UserHomeDir()
	if got := GetRealUserHome(); got != home {
		t.Errorf("GetRealUserHome() = %q, want %q", got, home)
	}
}

func TestUserModeConfig_PlistDir(t *testing.T) {
	config := userModeConfig("/Users/alex", false)

	if config.PlistDir != "/Users/alex/Library/LaunchAgents" {
		t.Errorf("PlistDir = %s, want /Users/alex/Library/LaunchAgents", config.PlistDir)
	}
	if system := systemModeConfig(); system.PlistDir != "/Library/LaunchDaemons" {
		t.Errorf("system PlistDir = %s, want /Library/LaunchDaemons", system.PlistDir)
	}
}
