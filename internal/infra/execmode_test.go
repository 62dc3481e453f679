package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeConfigFor(t *testing.T) {
	home := "/home/alice"

	tests := []struct {
		name      string
		goos      string
		mode      ExecMode
		xdg       string
		wantKind  EntryKind
		wantEntry string
	}{
		{"linux user", "linux", ExecModeUser, "", EntryXDG, "/home/alice/.config/autostart/netmon.desktop"},
		{"linux user custom xdg", "linux", ExecModeUser, "/tmp/xdg", EntryXDG, "/tmp/xdg/autostart/netmon.desktop"},
		{"linux system", "linux", ExecModeSystem, "", EntrySystemd, "/etc/systemd/system/netmon.service"},
		{"darwin user", "darwin", ExecModeUser, "", EntryLaunchAgent, "/home/alice/Library/LaunchAgents/" + LaunchdLabel + ".plist"},
		{"darwin system", "darwin", ExecModeSystem, "", EntryLaunchDaemon, "/Library/LaunchDaemons/" + LaunchdLabel + ".plist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := modeConfigFor(tt.goos, tt.mode, home, tt.xdg)

			assert.Equal(t, tt.mode, cfg.Mode)
			assert.Equal(t, tt.wantKind, cfg.Kind)
			assert.Equal(t, tt.wantEntry, cfg.EntryPath)
			assert.Equal(t, cfg.EntryDir, filepath.Dir(cfg.EntryPath))
		})
	}
}

func TestDetectExecMode_MatchesEUID(t *testing.T) {
	cfg := DetectExecMode()

	if os.Geteuid() == 0 {
		assert.Equal(t, ExecModeSystem, cfg.Mode)
		assert.True(t, cfg.IsRoot)
	} else {
		assert.Equal(t, ExecModeUser, cfg.Mode)
		assert.False(t, cfg.IsRoot)
	}
}

func TestExecMode_String(t *testing.T) {
	assert.Contains(t, ExecModeUser.String(), "user")
	assert.Contains(t, ExecModeSystem.String(), "system")
	assert.Equal(t, "unknown", ExecMode("x").String())
}

func TestGetRealUserHome(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	home, _ := os.UserHomeDir()
	assert.Equal(t, home, GetRealUserHome())
}
