package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// DefaultBrowserTimeout bounds a single browser operation.
const DefaultBrowserTimeout = 30 * time.Second

// Local fallbacks looked up in the working directory when the managed
// driver or browser cannot be used.
var (
	localDriverDirs    = []string{"ms-playwright-go", "playwright-driver"}
	localBrowserBinary = []string{
		"chrome",
		"chromium",
		"chrome.exe",
		filepath.Join("chrome-linux", "chrome"),
		filepath.Join("chrome-mac", "Chromium.app", "Contents", "MacOS", "Chromium"),
	}
)

// Startup flags shared by both engines: no GPU, no disk cache, quiet logging.
var chromiumArgs = []string{
	"--disable-gpu",
	"--incognito",
	"--disk-cache-size=0",
	"--log-level=3",
}

// LauncherOptions configures browser session creation.
type LauncherOptions struct {
	WorkDir string        // searched for local driver/browser fallbacks
	Timeout time.Duration // per-operation timeout
	Logger  *zap.Logger
}

func (o LauncherOptions) withDefaults() LauncherOptions {
	if o.WorkDir == "" {
		o.WorkDir, _ = os.Getwd()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultBrowserTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// NewBrowserLauncher returns the launcher for engine. An empty engine means playwright.
func NewBrowserLauncher(engine domain.Engine, opts LauncherOptions) (domain.BrowserLauncher, error) {
	opts = opts.withDefaults()
	switch engine {
	case "", domain.EnginePlaywright:
		return NewPlaywrightLauncher(opts), nil
	case domain.EngineChromedp:
		return NewChromedpLauncher(opts), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", engine)
	}
}

// isDriverMismatch reports whether err means the managed driver or browser
// does not fit this machine, so a local fallback is worth trying.
func isDriverMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"please install the driver",
		"version mismatch",
		"executable doesn't exist",
		"executable file not found",
		"could not find",
		"session not created",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// findLocal returns the first candidate that exists under dir.
func findLocal(dir string, candidates []string) string {
	for _, c := range candidates {
		p := filepath.Join(dir, c)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
