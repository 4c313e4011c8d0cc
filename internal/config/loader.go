package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/trustfang/pkg/checkpoint"
)

// configName is the config file name without extension.
const configName = ".trustfang"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for trustfang settings.
const envPrefix = "TRUSTFANG"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	// String keys default to empty so env overrides bind through Unmarshal.
	viperCfg.SetDefault("server.url", "")
	viperCfg.SetDefault("server.username", "")
	viperCfg.SetDefault("server.password", "")
	viperCfg.SetDefault("output.path", "")
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.metrics_addr", "")

	viperCfg.SetDefault("server.category", DefaultServerCategory)
	viperCfg.SetDefault("server.page_size", DefaultServerPageSize)
	viperCfg.SetDefault("server.max_retries", DefaultServerMaxRetries)
	viperCfg.SetDefault("server.timeout_seconds", DefaultServerTimeoutSeconds)

	viperCfg.SetDefault("analysis.days_interval", DefaultDaysInterval)
	viperCfg.SetDefault("analysis.batch_size", DefaultBatchSize)
	viperCfg.SetDefault("analysis.limit", DefaultLimit)
	viperCfg.SetDefault("analysis.strict", DefaultStrict)

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.no_color", DefaultOutputNoColor)

	viperCfg.SetDefault("telemetry.log_json", DefaultLogJSON)
	viperCfg.SetDefault("telemetry.log_level", DefaultLogLevel)

	viperCfg.SetDefault("checkpoint.enabled", DefaultCheckpointEnabled)
	viperCfg.SetDefault("checkpoint.dir", checkpoint.DefaultDir())
	viperCfg.SetDefault("checkpoint.resume", DefaultCheckpointResume)
}
