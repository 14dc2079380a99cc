package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aponysus/cadence/internal/logging"
	"github.com/aponysus/cadence/policy"
)

// Config is the CLI configuration, read from flags, CADENCE_* environment variables and an
// optional config file, in that order of precedence.
type Config struct {
	Environment string `mapstructure:"env"`
	LogLevel    string `mapstructure:"log-level"`
	Policies    string `mapstructure:"policies"`
}

func loadConfig(cmd *cobra.Command, cfgFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CADENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("env", "production")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (c Config) logger(cmd *cobra.Command) zerolog.Logger {
	l := logging.Setup(c.Environment, cmd.ErrOrStderr())
	return l.Level(logging.ParseLevel(c.LogLevel, l.GetLevel()))
}

// document loads the configured policy document, or an empty one when none is configured.
func (c Config) document() (policy.Document, error) {
	if c.Policies == "" {
		return policy.Document{Version: policy.DocumentVersion}, nil
	}
	return policy.LoadFile(c.Policies)
}

// lookup returns the policy for key from doc, falling back to the document default and then to
// the built-in default.
func lookup(doc policy.Document, key policy.PolicyKey) (policy.EffectivePolicy, error) {
	resolved, err := doc.Resolve()
	if err != nil {
		return policy.EffectivePolicy{}, err
	}
	if p, ok := resolved[key]; ok {
		return p, nil
	}
	p, ok, err := doc.DefaultPolicy(key)
	if err != nil {
		return policy.EffectivePolicy{}, err
	}
	if ok {
		return p, nil
	}
	return policy.DefaultPolicyFor(key).Normalize()
}
