// Package logging constructs the service's zap logger and sanitizes
// sensitive values before they reach log output.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates the root logger for the given environment.
// "local" and "dev" get human-readable development output at debug level,
// everything else gets production JSON output at info level.
func New(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch env {
	case "local", "dev", "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return logger, nil
}
