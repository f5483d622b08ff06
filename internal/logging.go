package internal

import "go.uber.org/zap"

// The TUI owns the terminal, so logging stays off (a no-op logger) unless
// the user points it at a file.
var logger = zap.NewNop()

// InitLogging routes diagnostic logs to the given file. An empty path
// leaves logging disabled.
func InitLogging(path string) error {
	if path == "" {
		return nil
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	logger = built
	return nil
}

// Log returns the shared logger.
func Log() *zap.Logger {
	return logger
}
