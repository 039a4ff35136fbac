// Package config loads the superblock manager's operational tunables
// using github.com/spf13/viper, following the same config-search-path and
// mapstructure pattern as the reference corpus's disk.LoadDMGConfig. Only
// operational concerns live here — the on-disk format and the
// cryptographic protocol are normative and never configurable.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the operational defaults for CLI and library callers.
type Config struct {
	LogLevel       string `mapstructure:"log_level"`
	DefaultVersion uint32 `mapstructure:"default_version"`
}

// Load reads svmgr-config.{yaml,...} from the usual search paths, falling
// back to defaults when no config file is present.
func Load() (*Config, error) {
	viper.SetConfigName("svmgr-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.svmgr")
	viper.AddConfigPath("/etc/svmgr")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("default_version", 1)

	viper.SetEnvPrefix("SVMGR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}
