package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rebeliceyang/lazysearch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lazysearch.log")
	logger, err := NewFile(config.LogConfig{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug("search executed", zap.String("entity_type", "party"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entity_type":"party"`)

	nop, err := NewFile(config.LogConfig{Level: "info"})
	require.NoError(t, err)
	assert.NotNil(t, nop)
}
