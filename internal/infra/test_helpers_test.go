package infra

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	runningPIDs map[int]bool
	names       map[int]string
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		runningPIDs: map[int]bool{os.Getpid(): true},
		names:       map[int]string{os.Getpid(): "netmon"},
	}
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return m.runningPIDs[pid]
}

func (m *mockProcessManager) NameOf(pid int) (string, error) {
	name, ok := m.names[pid]
	if !ok {
		return "", fmt.Errorf("process %d not found", pid)
	}
	return name, nil
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

func (m *mockProcessManager) SetRunning(pid int, running bool) {
	m.runningPIDs[pid] = running
}

// mockCommandRunner records commands instead of executing them
type mockCommandRunner struct {
	mu       sync.Mutex
	commands []string
	errs     map[string]error // keyed by command name
	output   []byte
}

func newMockCommandRunner() *mockCommandRunner {
	return &mockCommandRunner{errs: make(map[string]error)}
}

func (m *mockCommandRunner) record(name string, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return m.errs[name]
}

func (m *mockCommandRunner) Run(name string, args ...string) error {
	return m.record(name, args)
}

func (m *mockCommandRunner) Output(name string, args ...string) ([]byte, error) {
	if err := m.record(name, args); err != nil {
		return nil, err
	}
	return m.output, nil
}

func (m *mockCommandRunner) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// fakeExitError mimics *exec.ExitError for elevation classification
type fakeExitError struct {
	code int
	msg  string
}

func (e *fakeExitError) Error() string { return e.msg }
func (e *fakeExitError) ExitCode() int { return e.code }
