package domain

import (
	"context"
	"time"
)

// Browser is an owned browser session driven by the poll loop.
// Implementations: playwright-go and chromedp.
type Browser interface {
	// Navigate loads url in the session's single page.
	Navigate(ctx context.Context, url string) error

	// Find resolves an XPath locator. Returns ErrElementNotFound when nothing matches.
	Find(ctx context.Context, xpath string) (Element, error)

	// Close releases the page, the browser and any driver process.
	Close() error
}

// Element is a resolved node on the current page.
type Element interface {
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)

	// Click performs a user-like click.
	Click(ctx context.Context) error

	// Clear empties an input.
	Clear(ctx context.Context) error

	// Type sends keystrokes to the element.
	Type(ctx context.Context, value string) error

	// SelectByText picks the <option> whose visible text equals label.
	SelectByText(ctx context.Context, label string) error

	// Activate invokes the element's click() from script, bypassing overlays
	// and non-standard submit controls.
	Activate(ctx context.Context) error
}

// BrowserLauncher creates browser sessions.
type BrowserLauncher interface {
	// Launch creates a headless, incognito, cache-disabled session.
	// Returns an error wrapping ErrDriverMismatch when neither the managed
	// driver nor a local fallback could be used because of version skew.
	Launch(ctx context.Context) (Browser, error)

	// Engine returns the backend name.
	Engine() Engine
}

// StatusSink receives human-readable status updates. Implementations must not block.
type StatusSink func(message string)

// HistoryStore persists status events.
// Implementation: SQLCipher encrypted database next to the config.
type HistoryStore interface {
	// Append stores one event.
	Append(event StatusEvent) error

	// Recent returns up to limit most recent events, oldest first.
	Recent(limit int) ([]StatusEvent, error)

	// Prune keeps only the newest keep events.
	Prune(keep int) error

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// ProcessManager handles OS process queries.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// NameOf returns the executable name of a PID.
	NameOf(pid int) (string, error)

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// InstanceGuard provides a named, process-wide single-instance lock.
type InstanceGuard interface {
	// Acquire takes the lock. Returns ErrAlreadyRunning if another live process holds it.
	Acquire() error

	// Release drops the lock. Safe to call multiple times.
	Release() error

	// HolderPID returns the PID recorded by the current holder, or 0.
	HolderPID() int
}

// AutostartManager registers the program to start automatically.
// Implementations: XDG autostart / systemd on linux, LaunchAgent / LaunchDaemon on darwin.
type AutostartManager interface {
	// Enable writes and activates the autostart entry for execPath.
	Enable(execPath string) error

	// Disable removes the autostart entry. Missing entries are not an error.
	Disable() error

	// IsEnabled reports whether the entry exists. A missing entry is (false, nil).
	IsEnabled() (bool, error)

	// EntryPath returns where the entry lives.
	EntryPath() string

	// NeedsUpdate checks if the entry exists but points somewhere else.
	NeedsUpdate(execPath string) bool
}

// Keeper is a running poll loop as seen by the presentation shell.
type Keeper interface {
	// Start launches the background worker. It returns immediately.
	Start(ctx context.Context) error

	// Stop requests cancellation and releases the browser session.
	Stop()

	// Wait blocks until the worker exits or timeout elapses. Returns true if it exited.
	Wait(timeout time.Duration) bool

	// State returns the current lifecycle state.
	State() KeeperState

	// Alive reports whether the worker goroutine is still running.
	Alive() bool
}

// PortalStore provides access to gateway page descriptions.
// Implementation: in-memory registry of built-in portals.
type PortalStore interface {
	// GetByID returns a portal by ID.
	GetByID(id string) (*Portal, error)
}
