package infra

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// AutostartFlag is passed to the executable by every autostart entry.
const AutostartFlag = "--autostart"

// XDG autostart desktop entry (linux, runs at user login)
const xdgTemplate = `[Desktop Entry]
Type=Application
Name=netmon
Comment=Campus network keeper
Exec="{{.ExecutablePath}}" {{.Flag}}
Terminal=false
X-GNOME-Autostart-enabled=true
`

// systemd unit (linux, runs at boot as root)
const systemdTemplate = `[Unit]
Description=netmon campus network keeper
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStartPre=/bin/sleep {{.Delay}}
ExecStart="{{.ExecutablePath}}" {{.Flag}}
Restart=no

[Install]
WantedBy=multi-user.target
`

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
        <string>{{.Flag}}</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>ProcessType</key>
    <string>Interactive</string>
</dict>
</plist>
`

// LaunchDaemon plist template (runs as root, delayed after boot)
const launchDaemonTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>/bin/sh</string>
        <string>-c</string>
        <string>sleep {{.Delay}}; exec "{{.ExecutablePath}}" {{.Flag}}</string>
    </array>

    <key>RunAtLoad</key>
    <true/>
</dict>
</plist>
`

var entryTemplates = map[EntryKind]string{
	EntryXDG:          xdgTemplate,
	EntrySystemd:      systemdTemplate,
	EntryLaunchAgent:  launchAgentTemplate,
	EntryLaunchDaemon: launchDaemonTemplate,
}

type entryConfig struct {
	Label          string
	ExecutablePath string
	Flag           string
	Delay          int
}

// AutostartManagerImpl implements domain.AutostartManager for every entry kind.
type AutostartManagerImpl struct {
	config    *ExecModeConfig
	cmdRunner CommandRunner
}

// NewAutostartManager creates an autostart manager for the given mode configuration.
func NewAutostartManager(config *ExecModeConfig) *AutostartManagerImpl {
	return &AutostartManagerImpl{config: config, cmdRunner: &RealCommandRunner{}}
}

// NewAutostartManagerWithRunner creates a manager with an injectable command runner (for testing).
func NewAutostartManagerWithRunner(config *ExecModeConfig, runner CommandRunner) *AutostartManagerImpl {
	return &AutostartManagerImpl{config: config, cmdRunner: runner}
}

// generateEntry renders the entry file for execPath.
func (m *AutostartManagerImpl) generateEntry(execPath string) ([]byte, error) {
	tmplStr, ok := entryTemplates[m.config.Kind]
	if !ok {
		return nil, fmt.Errorf("unsupported autostart entry kind %q", m.config.Kind)
	}

	tmpl, err := template.New(string(m.config.Kind)).Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entry template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, entryConfig{
		Label:          LaunchdLabel,
		ExecutablePath: execPath,
		Flag:           AutostartFlag,
		Delay:          SystemStartDelaySeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute entry template: %w", err)
	}
	return buf.Bytes(), nil
}

// Enable writes the entry and activates it. System mode requires root.
func (m *AutostartManagerImpl) Enable(execPath string) error {
	if m.config.Mode == ExecModeSystem && !m.config.IsRoot {
		return domain.ErrElevationRequired
	}

	content, err := m.generateEntry(execPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.config.EntryDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", m.config.EntryDir, err)
	}

	// Reload a launchd job whose plist is about to change
	if m.IsInstalled() {
		_ = m.deactivate()
	}
	if err := os.WriteFile(m.config.EntryPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write autostart entry: %w", err)
	}
	if err := m.activate(); err != nil {
		return fmt.Errorf("failed to activate autostart entry: %w", err)
	}
	return nil
}

// Disable deactivates and removes the entry. A missing entry is not an error.
func (m *AutostartManagerImpl) Disable() error {
	if m.config.Mode == ExecModeSystem && !m.config.IsRoot {
		return domain.ErrElevationRequired
	}
	if !m.IsInstalled() {
		return nil
	}

	// Ignore errors if not loaded
	_ = m.deactivate()

	if err := os.Remove(m.config.EntryPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove autostart entry: %w", err)
	}
	return nil
}

// IsEnabled reports whether the entry exists. Absence is not an error.
func (m *AutostartManagerImpl) IsEnabled() (bool, error) {
	_, err := os.Stat(m.config.EntryPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsInstalled checks if the entry file is present.
func (m *AutostartManagerImpl) IsInstalled() bool {
	ok, _ := m.IsEnabled()
	return ok
}

// NeedsUpdate checks if the entry exists but has different content than expected.
func (m *AutostartManagerImpl) NeedsUpdate(execPath string) bool {
	if !m.IsInstalled() {
		return false // Doesn't exist, needs enable not update
	}

	current, err := os.ReadFile(m.config.EntryPath)
	if err != nil {
		return true
	}
	expected, err := m.generateEntry(execPath)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, expected)
}

// EntryPath returns the entry file path.
func (m *AutostartManagerImpl) EntryPath() string {
	return m.config.EntryPath
}

// Mode returns the execution mode this manager registers in.
func (m *AutostartManagerImpl) Mode() ExecMode {
	return m.config.Mode
}

func (m *AutostartManagerImpl) activate() error {
	switch m.config.Kind {
	case EntrySystemd:
		if err := m.cmdRunner.Run("systemctl", "daemon-reload"); err != nil {
			return err
		}
		return m.cmdRunner.Run("systemctl", "enable", ServiceName+".service")
	case EntryLaunchAgent, EntryLaunchDaemon:
		// `launchctl load` is deprecated but still works and covers both domains
		return m.cmdRunner.Run("launchctl", "load", m.config.EntryPath)
	default:
		// XDG entries are picked up by the session manager at next login
		return nil
	}
}

func (m *AutostartManagerImpl) deactivate() error {
	switch m.config.Kind {
	case EntrySystemd:
		return m.cmdRunner.Run("systemctl", "disable", ServiceName+".service")
	case EntryLaunchAgent, EntryLaunchDaemon:
		return m.cmdRunner.Run("launchctl", "unload", m.config.EntryPath)
	default:
		return nil
	}
}

// Ensure AutostartManagerImpl implements domain.AutostartManager.
var _ domain.AutostartManager = (*AutostartManagerImpl)(nil)
