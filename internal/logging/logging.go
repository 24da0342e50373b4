// Package logging builds the zap logger used across lazysearch.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rebeliceyang/lazysearch/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing to stderr
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return build(cfg, "stderr")
}

// NewFile builds a logger writing to cfg.File, for runs that own the
// terminal
func NewFile(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.File == "" {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return build(cfg, cfg.File)
}

func build(cfg config.LogConfig, output string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{output}
	zc.ErrorOutputPaths = []string{output}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
