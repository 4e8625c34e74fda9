package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestInit verifies logger initialization for different environments.
func TestInit(t *testing.T) {
	t.Run("Development", func(t *testing.T) {
		err := Init("development", "debug")
		require.NoError(t, err)
		assert.True(t, Get().Core().Enabled(zap.DebugLevel))
	})

	t.Run("Production", func(t *testing.T) {
		err := Init("production", "info")
		require.NoError(t, err)
		assert.False(t, Get().Core().Enabled(zap.DebugLevel))
		assert.True(t, Get().Core().Enabled(zap.InfoLevel))
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		err := Init("development", "invalid_level")
		require.NoError(t, err)
	})
}

// TestGet verifies that Get never returns nil.
func TestGet(t *testing.T) {
	globalLogger.Store(nil)
	assert.NotNil(t, Get())

	require.NoError(t, Init("development", "info"))
	assert.NotNil(t, Get())
}

func TestSet(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	defer globalLogger.Store(nil)

	Get().Info("banner loaded", zap.String("banner", "mopub"))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "banner loaded", logs.All()[0].Message)
}

// TestSync verifies that Sync does not panic even if logger is nil.
func TestSync(t *testing.T) {
	globalLogger.Store(nil)
	Sync()

	require.NoError(t, Init("development", "info"))
	Sync()
}
