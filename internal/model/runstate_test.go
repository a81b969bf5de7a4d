package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStateGuards(t *testing.T) {
	assert.True(t, StateInit.CanStart())
	assert.True(t, StateStopped.CanStart())
	assert.False(t, StateBooting.CanStart())
	assert.False(t, StateRunning.CanStart())
	assert.False(t, StateStopping.CanStart())

	assert.True(t, StateRunning.CanStop())
	assert.False(t, StateInit.CanStop())
	assert.False(t, StateBooting.CanStop())
	assert.False(t, StateStopping.CanStop())
	assert.False(t, StateStopped.CanStop())
}

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", RunState(99).String())
}
