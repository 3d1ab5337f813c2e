package infra

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// AutostartLabel is the launchd label of the shield daemon.
const AutostartLabel = "com.focusd.shieldmon"

// LaunchAgent plist template (runs as user)
const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>daemon</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ProcessType</key>
    <string>Interactive</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

// LaunchDaemon plist template (runs as root)
const launchDaemonTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>daemon</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <true/>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

type plistConfig struct {
	Label          string
	ExecutablePath string
	ErrorLogPath   string
}

// LaunchdAutostart implements domain.AutostartManager with a launchd plist.
type LaunchdAutostart struct {
	mode      ExecMode
	plistDir  string
	plistPath string
	errLog    string
	runner    CommandRunner
}

// NewLaunchdAutostart creates an autostart manager for the execution mode.
func NewLaunchdAutostart(config *ExecModeConfig, runner CommandRunner) *LaunchdAutostart {
	return &LaunchdAutostart{
		mode:      config.Mode,
		plistDir:  config.PlistDir,
		plistPath: filepath.Join(config.PlistDir, AutostartLabel+".plist"),
		errLog:    config.LogPath + ".stderr",
		runner:    runner,
	}
}

// generatePlistContent creates plist content for the given exec path.
func (m *LaunchdAutostart) generatePlistContent(execPath string) ([]byte, error) {
	tmplStr := launchAgentTemplate
	if m.mode == ExecModeSystem {
		tmplStr = launchDaemonTemplate
	}

	tmpl, err := template.New("plist").Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plist template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, plistConfig{
		Label:          AutostartLabel,
		ExecutablePath: execPath,
		ErrorLogPath:   m.errLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute plist template: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes the plist and loads it. An existing plist is replaced.
func (m *LaunchdAutostart) Install(ctx context.Context, execPath string) error {
	if err := os.MkdirAll(m.plistDir, 0755); err != nil {
		return err
	}

	content, err := m.generatePlistContent(execPath)
	if err != nil {
		return err
	}

	if m.IsInstalled() {
		_ = m.launchctl(ctx, "unload")
	}
	if err := os.WriteFile(m.plistPath, content, 0644); err != nil {
		return err
	}
	if err := m.launchctl(ctx, "load"); err != nil {
		return fmt.Errorf("launchctl load %s: %w", m.plistPath, err)
	}
	return nil
}

// Uninstall unloads and removes the plist. Uninstalling twice is a no-op.
func (m *LaunchdAutostart) Uninstall(ctx context.Context) error {
	if !m.IsInstalled() {
		return nil
	}
	// Unload first (ignore errors if not loaded)
	_ = m.launchctl(ctx, "unload")
	return os.Remove(m.plistPath)
}

// IsInstalled checks if the plist is present.
func (m *LaunchdAutostart) IsInstalled() bool {
	_, err := os.Stat(m.plistPath)
	return err == nil
}

// NeedsUpdate reports whether the installed plist differs from what Install
// would write for execPath (e.g. the binary moved).
func (m *LaunchdAutostart) NeedsUpdate(execPath string) bool {
	if !m.IsInstalled() {
		return false
	}
	current, err := os.ReadFile(m.plistPath)
	if err != nil {
		return true
	}
	expected, err := m.generatePlistContent(execPath)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, expected)
}

// Path returns the plist file path.
func (m *LaunchdAutostart) Path() string {
	return m.plistPath
}

// launchctl load/unload is deprecated but still works for both domains.
func (m *LaunchdAutostart) launchctl(ctx context.Context, verb string) error {
	return m.runner.Run(ctx, []string{"launchctl", verb, m.plistPath})
}

var _ domain.AutostartManager = (*LaunchdAutostart)(nil)
