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

	// Optional config.yaml next to the binary or in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables win, e.g. CONTENTOPS_DATABASE_URL overrides
	// database.url from the file.
	v.SetEnvPrefix("CONTENTOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("llm.text_model", "gemini-2.0-flash")
	v.SetDefault("llm.image_model", "imagen-3.0-generate-002")
	v.SetDefault("llm.image_output_dir", "data")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("publisher.timeout_seconds", 30)
	v.SetDefault("lifecycle.watch_timeout_seconds", 30)
	v.SetDefault("lifecycle.image_poll_interval_seconds", 5)
	v.SetDefault("lifecycle.image_poll_timeout_seconds", 300)
	v.SetDefault("lifecycle.image_generation_enabled", true)
	v.SetDefault("worker.concurrency", 10)
}

// bindEnvKeys registers every config key with viper so AutomaticEnv picks up
// variables for keys that have no default and are absent from the file.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.port",
		"server.log_level",
		"database.url",
		"redis.addr",
		"redis.password",
		"redis.db",
		"llm.gemini_api_key",
		"llm.text_model",
		"llm.image_model",
		"llm.image_output_dir",
		"llm.max_retries",
		"llm.retry_delay_seconds",
		"publisher.base_url",
		"publisher.api_key",
		"publisher.timeout_seconds",
		"lifecycle.watch_timeout_seconds",
		"lifecycle.image_poll_interval_seconds",
		"lifecycle.image_poll_timeout_seconds",
		"lifecycle.image_generation_enabled",
		"worker.concurrency",
	}
	for _, key := range keys {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(key)
	}
}
