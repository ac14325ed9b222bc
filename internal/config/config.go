package config

import (
	"github.com/spf13/viper"
)

// Config holds the probe settings. Everything has a usable default so the
// check runs without any config file, the way Nagios deploys it.
type Config struct {
	CacheFile             string   `mapstructure:"cache_file"`
	OmitKernel            bool     `mapstructure:"omit_kernel"`
	CommandTimeoutSeconds int      `mapstructure:"command_timeout_seconds"`
	ListCommand           []string `mapstructure:"list_command"`
	InfoCommand           []string `mapstructure:"info_command"`
	LogLevel              string   `mapstructure:"log_level"`
	LogFormat             string   `mapstructure:"log_format"`
}

func Default() *Config {
	return &Config{
		CacheFile:             "/tmp/check-security-updates.cache",
		CommandTimeoutSeconds: 60,
		ListCommand:           []string{"yum", "updateinfo", "list"},
		InfoCommand:           []string{"yum", "updateinfo", "info"},
		LogLevel:              "info",
		LogFormat:             "text",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("check-security-updates")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/check-security-updates")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SECUPDATES")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
