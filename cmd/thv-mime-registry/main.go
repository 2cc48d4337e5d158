// Package main is the entry point for the media type registry synchronizer.
package main

import (
	"os"
	"strings"

	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stacklok/toolhive-mime-registry/cmd/thv-mime-registry/app"
	"github.com/stacklok/toolhive-mime-registry/internal/config"
)

// getLogLevel parses the THV_MIME_LOG_LEVEL environment variable.
// Falls back to LOG_LEVEL, then to info when neither is set or valid.
func getLogLevel() zapcore.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	if levelStr == "" {
		return zapcore.InfoLevel
	}

	level, err := zapcore.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func newLogger() (*zap.Logger, error) {
	// JSON on stderr keeps stdout clean for command output
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(getLogLevel())
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	logger, err := newLogger()
	if err != nil {
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)
	otel.SetLogger(zapr.NewLogger(logger))

	code := 0
	if err := app.NewRootCmd().Execute(); err != nil {
		code = 1
	}
	_ = logger.Sync()
	os.Exit(code)
}
