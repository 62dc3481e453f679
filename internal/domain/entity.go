// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"errors"
	"time"
)

// KeeperState is the lifecycle state of a poll loop instance.
type KeeperState string

const (
	StateIdle         KeeperState = "idle"
	StateInitializing KeeperState = "initializing"
	StateRunning      KeeperState = "running"
	StateStopping     KeeperState = "stopping"
	StateStopped      KeeperState = "stopped"
	StateFailed       KeeperState = "failed" // browser session could not be created
)

// Engine names a browser automation backend.
type Engine string

const (
	EnginePlaywright Engine = "playwright"
	EngineChromedp   Engine = "chromedp"
)

// StatusEvent is a status message together with the moment it was emitted.
// Persisted by the history store so the log panel survives restarts.
type StatusEvent struct {
	At      time.Time
	Message string
}

// LoginFailure tells which step of a login attempt gave up.
type LoginFailure string

const (
	LoginFailureNone     LoginFailure = ""
	LoginFailureOperator LoginFailure = "operator" // dropdown could not be resolved or selected
	LoginFailureElements LoginFailure = "elements" // account, password or submit control failed
)

// ProbeResult captures one inspection of the gateway page.
type ProbeResult struct {
	LoggedIn bool
	Message  string
}

var (
	// ErrElementNotFound is returned when a locator matches nothing on the page.
	ErrElementNotFound = errors.New("element not found")

	// ErrNoLocator is returned when a candidate list contains no usable locator.
	ErrNoLocator = errors.New("no valid xpath provided")

	// ErrDriverMismatch marks a browser/driver version mismatch during session creation.
	ErrDriverMismatch = errors.New("browser driver version mismatch")

	// ErrAlreadyRunning is returned when another instance holds the instance lock.
	ErrAlreadyRunning = errors.New("another instance is already running")

	// ErrElevationRequired is returned when an operation needs root.
	ErrElevationRequired = errors.New("administrator privileges required")

	// ErrElevationDeclined is returned when the user dismissed the elevation prompt.
	ErrElevationDeclined = errors.New("elevation declined by user")
)

// Portal describes one captive-portal gateway page: where to read its state
// and where its login form controls usually live.
type Portal struct {
	ID   string
	Name string

	SuccessXPath  string // banner shown once logged in
	SuccessPhrase string // exact banner text when logged in
	MessageXPath  string // free-form status or error message

	// Candidate locators, tried in order until one resolves.
	OperatorXPaths []string
	AccountXPaths  []string
	PasswordXPaths []string
	SubmitXPaths   []string
}
