package infra

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// LockFileName is the single-instance lock created in the data directory.
const LockFileName = "netmon.lock"

// InstanceLock implements domain.InstanceGuard with an advisory flock.
// The holder writes its PID into the file so a second instance can say who has it.
type InstanceLock struct {
	path           string
	processManager domain.ProcessManager

	mu   sync.Mutex
	file *os.File
}

// NewInstanceLock creates a lock at dir/netmon.lock.
func NewInstanceLock(dir string, pm domain.ProcessManager) *InstanceLock {
	return NewInstanceLockWithPath(filepath.Join(dir, LockFileName), pm)
}

// NewInstanceLockWithPath creates a lock at a specific path (for testing).
func NewInstanceLockWithPath(path string, pm domain.ProcessManager) *InstanceLock {
	return &InstanceLock{path: path, processManager: pm}
}

// Acquire takes the lock without blocking.
func (l *InstanceLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return l.heldError()
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if err := writePID(f, l.processManager.GetCurrentPID()); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return fmt.Errorf("failed to record pid: %w", err)
	}

	l.file = f
	return nil
}

// Release drops the lock and clears the recorded PID.
func (l *InstanceLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	_ = l.file.Truncate(0)
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return closeErr
}

// HolderPID returns the PID written by the current holder, or 0 if none is
// recorded or the recorded process is gone.
func (l *InstanceLock) HolderPID() int {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !l.processManager.IsRunning(pid) {
		return 0
	}
	return pid
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}

func (l *InstanceLock) heldError() error {
	pid := l.HolderPID()
	if pid == 0 {
		return domain.ErrAlreadyRunning
	}
	if name, err := l.processManager.NameOf(pid); err == nil {
		return fmt.Errorf("%w (pid %d, %s)", domain.ErrAlreadyRunning, pid, name)
	}
	return fmt.Errorf("%w (pid %d)", domain.ErrAlreadyRunning, pid)
}

func writePID(f *os.File, pid int) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.Itoa(pid)); err != nil {
		return err
	}
	return f.Sync()
}

// Ensure InstanceLock implements domain.InstanceGuard.
var _ domain.InstanceGuard = (*InstanceLock)(nil)
