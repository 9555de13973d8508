// Package logger builds the process-wide zap logger. Console format is for
// interactive runs; json is for long-lived deployments whose output is
// scraped.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap.Logger for the given level and format.
func NewLogger(level string, format string) (*zap.Logger, error) {
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
		// A batch of snipes settling together emits a burst of near-identical
		// resolution lines; sample them instead of flooding the sink.
		cfg.Sampling = &zap.SamplingConfig{Initial: 50, Thereafter: 10}
		cfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableCaller = true
	}

	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.DisableStacktrace = true

	return cfg.Build()
}
