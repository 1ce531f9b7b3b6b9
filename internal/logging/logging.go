// Package logging builds the process logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugFile receives debug logs while the console owns the terminal.
const DebugFile = "debug.log"

// Mode picks where logs go.
type Mode int

const (
	// Interactive discards logs unless debug is on, in which case they are
	// written as JSON to DebugFile.
	Interactive Mode = iota
	// Headless writes warnings and above to stderr, or everything with debug.
	Headless
)

// New builds a logger for mode.
func New(mode Mode, debug bool) (*zap.Logger, error) {
	var config zap.Config
	switch {
	case mode == Interactive && !debug:
		return zap.NewNop(), nil
	case mode == Interactive:
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{DebugFile}
		config.ErrorOutputPaths = []string{DebugFile}
	default:
		config = zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.DisableStacktrace = !debug

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
