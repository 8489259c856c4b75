package runner

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalManager_SignalCancels(t *testing.T) {
	sm := NewSignalManager(context.Background())
	defer sm.Stop()

	assert.NoError(t, sm.Context().Err())

	sm.sigs <- os.Interrupt
	<-sm.Context().Done()
	assert.True(t, sm.Interrupted())
}

func TestSignalManager_StopIsNotAnInterrupt(t *testing.T) {
	sm := NewSignalManager(context.Background())
	sm.Stop()
	sm.Stop()

	assert.ErrorIs(t, sm.Context().Err(), context.Canceled)
	assert.False(t, sm.Interrupted())
}

func TestSignalManager_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sm := NewSignalManager(parent)
	defer sm.Stop()

	cancel()
	<-sm.Context().Done()
	assert.False(t, sm.Interrupted(), "parent cancellation is not an interrupt")
}
