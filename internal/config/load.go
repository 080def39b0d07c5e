package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables (TUBETONE_ prefix, underscores for nesting) take
// precedence over values from config files, which take precedence over
// defaults. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything can come from env.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TUBETONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Registering an empty default makes the key visible to Unmarshal when
	// the value arrives via AutomaticEnv only.
	v.SetDefault("database.url", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("conversion.backend", "remote")
	v.SetDefault("conversion.worker_count", 3)
	v.SetDefault("conversion.queue_size", 100)
	v.SetDefault("conversion.max_retries", 3)
	v.SetDefault("conversion.retry_delay_seconds", 2)
	v.SetDefault("conversion.timeout_seconds", 600)
	v.SetDefault("conversion.task_ttl_hours", 24)
	v.SetDefault("conversion.cache_ttl_hours", 24)
	v.SetDefault("conversion.stuck_check_seconds", 60)
	v.SetDefault("conversion.sweep_minutes", 60)

	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.api_host", "youtube-mp36.p.rapidapi.com")
	v.SetDefault("provider.base_url", "https://youtube-mp36.p.rapidapi.com")

	v.SetDefault("pipeline.ytdlp_path", "yt-dlp")
	v.SetDefault("pipeline.ffmpeg_path", "ffmpeg")
}
