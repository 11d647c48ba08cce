package cli

import "go.uber.org/zap"

// newLogger builds the server logger: JSON to stderr, debug level when
// verbose. Stdout stays reserved for the NDJSON feed.
func newLogger(globals *Globals) *zap.Logger {
	if globals == nil || !globals.Verbose {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
		logger, err := cfg.Build()
		if err != nil {
			return zap.NewNop()
		}
		return logger
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
