package infra

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessManager_CurrentProcess(t *testing.T) {
	pm := NewProcessManager()

	assert.Equal(t, os.Getpid(), pm.GetCurrentPID())
	assert.True(t, pm.IsRunning(os.Getpid()))

	name, err := pm.NameOf(os.Getpid())
	require.NoError(t, err)
	assert.NotEmpty(t, name)
}

func TestProcessManager_InvalidPID(t *testing.T) {
	pm := NewProcessManager()

	assert.False(t, pm.IsRunning(0))
	assert.False(t, pm.IsRunning(-1))
	// PIDs this large are never allocated
	assert.False(t, pm.IsRunning(1<<30))

	_, err := pm.NameOf(1 << 30)
	assert.Error(t, err)
}
