// Package config loads aria2ctl configuration from file, environment, and
// defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all aria2ctl configuration.
type Config struct {
	RPC     RPCConfig     `mapstructure:"rpc"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RPCConfig holds the aria2 endpoint settings.
type RPCConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Secret    string            `mapstructure:"secret"`
	TimeoutMS int               `mapstructure:"timeout_ms"`
	Headers   map[string]string `mapstructure:"headers"`
}

// Timeout returns the per-call timeout as a duration.
func (c *RPCConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("aria2ctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/aria2ctl")
	}

	v.SetEnvPrefix("ARIA2CTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc.endpoint", "ws://localhost:6800/jsonrpc")
	v.SetDefault("rpc.secret", "")
	v.SetDefault("rpc.timeout_ms", 10000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
}
