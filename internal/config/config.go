// Package config loads resolverguard settings from defaults, an optional
// YAML file, RESOLVERGUARD_* environment variables, and command-line flags,
// in increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/capbase/resolverguard/internal/guards"
	"github.com/capbase/resolverguard/internal/rewriter"
)

// EnvPrefix is prepended to every environment variable, e.g. RESOLVERGUARD_POLICY_SENTINEL_GROUP.
const EnvPrefix = "RESOLVERGUARD"

// Configuration keys.
const (
	KeyGroupsClaim              = "policy.groups_claim"
	KeySentinelGroup            = "policy.sentinel_group"
	KeySubjectClaim             = "policy.subject_claim"
	KeyImpersonatedSubjectClaim = "policy.impersonated_subject_claim"
	KeyRewriteMode              = "rewrite.mode"
	KeyRewriteStrict            = "rewrite.strict"
	KeyLogLevel                 = "log.level"
)

// Config is the resolved configuration.
type Config struct {
	Policy  guards.Policy `mapstructure:"policy"`
	Rewrite RewriteConfig `mapstructure:"rewrite"`
	Log     LogConfig     `mapstructure:"log"`
}

// RewriteConfig mirrors rewriter.Options in configuration form.
type RewriteConfig struct {
	Mode   string `mapstructure:"mode"`
	Strict bool   `mapstructure:"strict"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// New returns a viper instance with defaults and environment binding in place.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	p := guards.DefaultPolicy()
	v.SetDefault(KeyGroupsClaim, p.GroupsClaim)
	v.SetDefault(KeySentinelGroup, p.SentinelGroup)
	v.SetDefault(KeySubjectClaim, p.SubjectClaim)
	v.SetDefault(KeyImpersonatedSubjectClaim, p.ImpersonatedSubjectClaim)
	v.SetDefault(KeyRewriteMode, string(rewriter.ModeCompose))
	v.SetDefault(KeyRewriteStrict, true)
	v.SetDefault(KeyLogLevel, "info")
}

// Load reads the optional config file at path into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if _, err := rewriter.ParseMode(c.Rewrite.Mode); err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// RewriteOptions converts the rewrite section into rewriter options.
func (c Config) RewriteOptions() (rewriter.Options, error) {
	mode, err := rewriter.ParseMode(c.Rewrite.Mode)
	if err != nil {
		return rewriter.Options{}, err
	}
	return rewriter.Options{Mode: mode, Strict: c.Rewrite.Strict}, nil
}

// LogLevel parses the configured log level.
func (c Config) LogLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.Log.Level)
}
