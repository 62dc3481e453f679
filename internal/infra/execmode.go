package infra

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// ExecMode represents where the autostart entry is registered.
type ExecMode string

const (
	// ExecModeUser starts at the user's login (no root required)
	ExecModeUser ExecMode = "user"
	// ExecModeSystem starts at boot with a delay (root required)
	ExecModeSystem ExecMode = "system"
)

const (
	// ServiceName names the autostart entry on every platform.
	ServiceName = "netmon"

	// LaunchdLabel is the plist label on darwin.
	LaunchdLabel = "io.github.elitegoblin.netmon"

	// SystemStartDelaySeconds gives the network stack time to come up after boot.
	SystemStartDelaySeconds = 30
)

// EntryKind names the mechanism used for an autostart entry.
type EntryKind string

const (
	EntryXDG          EntryKind = "xdg-autostart"
	EntrySystemd      EntryKind = "systemd"
	EntryLaunchAgent  EntryKind = "launch-agent"
	EntryLaunchDaemon EntryKind = "launch-daemon"
)

// ExecModeConfig holds paths and settings based on execution mode.
type ExecModeConfig struct {
	Mode      ExecMode
	Kind      EntryKind
	EntryDir  string // Where the autostart entry goes
	EntryPath string // Full path to the entry file
	IsRoot    bool   // Whether running as root
}

// DetectExecMode picks system mode when running as root, user mode otherwise.
func DetectExecMode() *ExecModeConfig {
	if os.Geteuid() == 0 {
		return ModeConfig(ExecModeSystem)
	}
	return ModeConfig(ExecModeUser)
}

// ModeConfig returns the configuration for a mode on the current platform.
func ModeConfig(mode ExecMode) *ExecModeConfig {
	cfg := modeConfigFor(runtime.GOOS, mode, GetRealUserHome(), os.Getenv("XDG_CONFIG_HOME"))
	cfg.IsRoot = os.Geteuid() == 0
	return cfg
}

func modeConfigFor(goos string, mode ExecMode, home, xdgConfigHome string) *ExecModeConfig {
	var cfg ExecModeConfig
	cfg.Mode = mode

	switch {
	case goos == "darwin" && mode == ExecModeSystem:
		cfg.Kind = EntryLaunchDaemon
		cfg.EntryDir = "/Library/LaunchDaemons"
		cfg.EntryPath = filepath.Join(cfg.EntryDir, LaunchdLabel+".plist")
	case goos == "darwin":
		cfg.Kind = EntryLaunchAgent
		cfg.EntryDir = filepath.Join(home, "Library", "LaunchAgents")
		cfg.EntryPath = filepath.Join(cfg.EntryDir, LaunchdLabel+".plist")
	case mode == ExecModeSystem:
		cfg.Kind = EntrySystemd
		cfg.EntryDir = "/etc/systemd/system"
		cfg.EntryPath = filepath.Join(cfg.EntryDir, ServiceName+".service")
	default:
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}
		cfg.Kind = EntryXDG
		cfg.EntryDir = filepath.Join(xdgConfigHome, "autostart")
		cfg.EntryPath = filepath.Join(cfg.EntryDir, ServiceName+".desktop")
	}
	return &cfg
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (boot, root)"
	case ExecModeUser:
		return "user (login, non-root)"
	default:
		return "unknown"
	}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns root's home, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
