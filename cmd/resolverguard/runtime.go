package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/capbase/resolverguard/internal/config"
	"github.com/capbase/resolverguard/internal/rewriter"
)

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":      config.KeyLogLevel,
	"mode":           config.KeyRewriteMode,
	"strict":         config.KeyRewriteStrict,
	"sentinel-group": config.KeySentinelGroup,
	"groups-claim":   config.KeyGroupsClaim,
}

// loadConfig resolves configuration for cmd. Flags only override the file
// and environment when set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := config.New()
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return config.Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return config.Load(v, configFile)
}

// newLogger builds the production logger used by every command. Logs go to
// stderr so template output on stdout stays clean.
func newLogger(level zapcore.Level) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}

// newRunner loads configuration and returns a logger and a default rewriter.
// The caller must Sync the logger.
func newRunner(cmd *cobra.Command) (*zap.Logger, *rewriter.Rewriter, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	opts, err := cfg.RewriteOptions()
	if err != nil {
		return nil, nil, err
	}
	rw, err := rewriter.NewDefault(logger, cfg.Policy, opts)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("Configuration loaded",
		zap.String("config_file", configFile),
		zap.String("mode", string(opts.Mode)),
		zap.Bool("strict", opts.Strict),
		zap.String("sentinel_group", cfg.Policy.SentinelGroup),
	)
	return logger, rw, nil
}
