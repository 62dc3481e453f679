package infra

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// pkexec exit statuses
const (
	pkexecDismissed    = 126
	pkexecUnauthorized = 127
)

// osascriptCanceled appears in stderr when the password dialog is dismissed.
const osascriptCanceled = "(-128)"

// Elevator re-runs the current executable with administrator privileges.
type Elevator struct {
	goos      string
	cmdRunner CommandRunner
}

// NewElevator creates an elevator for the current platform.
func NewElevator() *Elevator {
	return &Elevator{goos: runtime.GOOS, cmdRunner: &RealCommandRunner{}}
}

// NewElevatorWithRunner creates an elevator with injectable dependencies (for testing).
func NewElevatorWithRunner(goos string, runner CommandRunner) *Elevator {
	return &Elevator{goos: goos, cmdRunner: runner}
}

// Elevate runs execPath with args through the platform's privilege prompt
// and waits for it. A dismissed prompt yields domain.ErrElevationDeclined;
// a missing helper or a refused authorization yields domain.ErrElevationRequired.
func (e *Elevator) Elevate(execPath string, args ...string) error {
	var err error
	switch e.goos {
	case "linux":
		_, err = e.cmdRunner.Output("pkexec", append([]string{execPath}, args...)...)
	case "darwin":
		script := fmt.Sprintf("do shell script %s with administrator privileges",
			appleScriptString(shellJoin(append([]string{execPath}, args...))))
		_, err = e.cmdRunner.Output("osascript", "-e", script)
	default:
		return fmt.Errorf("%w: no elevation helper on %s", domain.ErrElevationRequired, e.goos)
	}
	return e.classify(err)
}

func (e *Elevator) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", domain.ErrElevationRequired, err)
	}

	var coded interface{ ExitCode() int }
	if !errors.As(err, &coded) {
		return fmt.Errorf("elevated command failed: %w", err)
	}

	switch e.goos {
	case "linux":
		switch coded.ExitCode() {
		case pkexecDismissed:
			return domain.ErrElevationDeclined
		case pkexecUnauthorized:
			return fmt.Errorf("%w: %v", domain.ErrElevationRequired, err)
		}
	case "darwin":
		if strings.Contains(err.Error(), osascriptCanceled) || strings.Contains(stderrOf(err), osascriptCanceled) {
			return domain.ErrElevationDeclined
		}
	}
	return fmt.Errorf("elevated command failed: %w", err)
}

func stderrOf(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(exitErr.Stderr)
	}
	return ""
}

// shellJoin single-quotes each argument for /bin/sh.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

// appleScriptString renders s as an AppleScript string literal.
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
