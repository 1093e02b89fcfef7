package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing file is fine; environment variables and defaults apply.
	}

	// Environment variables with the TASKPIPE_ prefix,
	// e.g. TASKPIPE_DATABASE_URL, TASKPIPE_SERVER_PORT.
	v.SetEnvPrefix("TASKPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the default value for every setting so a bare
// environment still yields a runnable configuration (aside from the
// database URL, which has no sensible default).
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.throttle_limit", 100)

	// Registered empty so viper picks TASKPIPE_DATABASE_URL up from the
	// environment during Unmarshal; validation rejects the empty default.
	v.SetDefault("database.url", "")

	v.SetDefault("pipeline.worker_count", 2)
	v.SetDefault("pipeline.queue_size", 100)
	v.SetDefault("pipeline.work_delay_ms", 10000)
	v.SetDefault("pipeline.submit_max_attempts", 3)
	v.SetDefault("pipeline.submit_retry_delay_ms", 100)
	v.SetDefault("pipeline.submit_retry_policy", "fixed")
	v.SetDefault("pipeline.consumer_max_attempts", 3)
	v.SetDefault("pipeline.consumer_base_delay_ms", 1000)
	v.SetDefault("pipeline.consumer_backoff_multiplier", 2.0)
	v.SetDefault("pipeline.cache_ttl_minutes", 5)
}
