package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/netmon/internal/domain"
)

const testExec = "/opt/netmon/netmon"

func testModeConfig(t *testing.T, goos string, mode ExecMode, isRoot bool) *ExecModeConfig {
	t.Helper()
	home := t.TempDir()
	cfg := modeConfigFor(goos, mode, home, "")
	// Redirect system locations into the temp dir
	cfg.EntryDir = filepath.Join(home, "entries")
	cfg.EntryPath = filepath.Join(cfg.EntryDir, filepath.Base(cfg.EntryPath))
	cfg.IsRoot = isRoot
	return cfg
}

func TestAutostart_EnableWritesEntry(t *testing.T) {
	tests := []struct {
		name         string
		goos         string
		mode         ExecMode
		wantContains []string
		wantCommands []string
	}{
		{
			name: "xdg",
			goos: "linux",
			mode: ExecModeUser,
			wantContains: []string{
				"[Desktop Entry]",
				`Exec="/opt/netmon/netmon" --autostart`,
			},
			wantCommands: nil,
		},
		{
			name: "systemd",
			goos: "linux",
			mode: ExecModeSystem,
			wantContains: []string{
				"ExecStartPre=/bin/sleep 30",
				`ExecStart="/opt/netmon/netmon" --autostart`,
				"WantedBy=multi-user.target",
			},
			wantCommands: []string{"systemctl daemon-reload", "systemctl enable netmon.service"},
		},
		{
			name: "launch agent",
			goos: "darwin",
			mode: ExecModeUser,
			wantContains: []string{
				"<string>" + LaunchdLabel + "</string>",
				"<string>/opt/netmon/netmon</string>",
				"<string>--autostart</string>",
				"<key>RunAtLoad</key>",
			},
		},
		{
			name: "launch daemon",
			goos: "darwin",
			mode: ExecModeSystem,
			wantContains: []string{
				"<string>/bin/sh</string>",
				`<string>sleep 30; exec "/opt/netmon/netmon" --autostart</string>`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testModeConfig(t, tt.goos, tt.mode, true)
			runner := newMockCommandRunner()
			m := NewAutostartManagerWithRunner(cfg, runner)

			enabled, err := m.IsEnabled()
			require.NoError(t, err)
			assert.False(t, enabled)

			require.NoError(t, m.Enable(testExec))

			content, err := os.ReadFile(m.EntryPath())
			require.NoError(t, err)
			for _, want := range tt.wantContains {
				assert.Contains(t, string(content), want)
			}

			enabled, err = m.IsEnabled()
			require.NoError(t, err)
			assert.True(t, enabled)

			if tt.goos == "darwin" {
				assert.Equal(t, []string{"launchctl load " + m.EntryPath()}, runner.Commands())
			} else {
				assert.Equal(t, tt.wantCommands, runner.Commands())
			}
		})
	}
}

func TestAutostart_DisableRemovesEntry(t *testing.T) {
	cfg := testModeConfig(t, "linux", ExecModeSystem, true)
	runner := newMockCommandRunner()
	m := NewAutostartManagerWithRunner(cfg, runner)

	require.NoError(t, m.Enable(testExec))
	require.NoError(t, m.Disable())

	enabled, err := m.IsEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Contains(t, runner.Commands(), "systemctl disable netmon.service")

	// Disabling twice is fine
	require.NoError(t, m.Disable())
}

func TestAutostart_SystemModeNeedsRoot(t *testing.T) {
	cfg := testModeConfig(t, "linux", ExecModeSystem, false)
	runner := newMockCommandRunner()
	m := NewAutostartManagerWithRunner(cfg, runner)

	assert.ErrorIs(t, m.Enable(testExec), domain.ErrElevationRequired)
	assert.ErrorIs(t, m.Disable(), domain.ErrElevationRequired)
	assert.Empty(t, runner.Commands())

	// Query works without root
	enabled, err := m.IsEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestAutostart_ActivationFailureReported(t *testing.T) {
	cfg := testModeConfig(t, "darwin", ExecModeUser, false)
	runner := newMockCommandRunner()
	runner.errs["launchctl"] = errors.New("Load failed: 5: Input/output error")
	m := NewAutostartManagerWithRunner(cfg, runner)

	err := m.Enable(testExec)
	assert.Error(t, err)
}

func TestAutostart_NeedsUpdate(t *testing.T) {
	cfg := testModeConfig(t, "linux", ExecModeUser, false)
	m := NewAutostartManagerWithRunner(cfg, newMockCommandRunner())

	assert.False(t, m.NeedsUpdate(testExec), "missing entry needs enable, not update")

	require.NoError(t, m.Enable(testExec))
	assert.False(t, m.NeedsUpdate(testExec))
	assert.True(t, m.NeedsUpdate("/usr/local/bin/netmon"))
}

func TestAutostart_ReenableReloadsLaunchd(t *testing.T) {
	cfg := testModeConfig(t, "darwin", ExecModeUser, false)
	runner := newMockCommandRunner()
	m := NewAutostartManagerWithRunner(cfg, runner)

	require.NoError(t, m.Enable(testExec))
	require.NoError(t, m.Enable("/Applications/netmon"))

	assert.Equal(t, []string{
		"launchctl load " + m.EntryPath(),
		"launchctl unload " + m.EntryPath(),
		"launchctl load " + m.EntryPath(),
	}, runner.Commands())
	assert.Equal(t, ExecModeUser, m.Mode())
}
