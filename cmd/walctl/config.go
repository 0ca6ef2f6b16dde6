package main

import (
	"strings"

	"github.com/spf13/viper"
)

// cliConfig is the walctl-wide configuration: which directory to open and
// how to size/verify the WAL within it. Every field binds to both a
// walctl.yaml key and a WALCTL_-prefixed environment variable of the same
// name.
type cliConfig struct {
	Dir             string `mapstructure:"dir"`
	EntryPerSegment uint64 `mapstructure:"entry_per_segment"`
	CheckCRC32      bool   `mapstructure:"check_crc32"`
}

// loadConfig reads walctl.yaml from the current directory (if present),
// then overlays WALCTL_-prefixed environment variables, then overlays any
// flags bound on v. A missing config file is not an error - an operator may
// run walctl purely off flags and environment variables.
func loadConfig(v *viper.Viper) (cliConfig, error) {
	v.SetConfigName("walctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("walctl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("dir", "./wal-data")
	v.SetDefault("entry_per_segment", 0)
	v.SetDefault("check_crc32", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cliConfig{}, err
		}
	}

	var cfg cliConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}
