package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Conversion ConversionConfig `mapstructure:"conversion" validate:"required"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// ConversionConfig governs the task lifecycle: which backend converts,
// how many workers run, and the retry/timeout/TTL policy around conversions.
type ConversionConfig struct {
	// Backend selects the conversion implementation once per deployment:
	// "remote" calls the external provider API, "pipeline" runs the local
	// yt-dlp/ffmpeg subprocess pair.
	Backend string `mapstructure:"backend" validate:"required,oneof=remote pipeline"`

	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0,lte=32"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`

	// MaxRetries is the number of additional backend attempts after the
	// first, taken only for errors classified as transient.
	MaxRetries        int `mapstructure:"max_retries"         validate:"gte=0,lte=10"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=1"`

	// TimeoutSeconds is the hard wall-clock ceiling for one conversion,
	// including all retries.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`

	TaskTTLHours  int `mapstructure:"task_ttl_hours"  validate:"required,gt=0"`
	CacheTTLHours int `mapstructure:"cache_ttl_hours" validate:"required,gt=0"`

	// StuckCheckSeconds is how often the runner scans for tasks stuck in
	// processing beyond the timeout ceiling.
	StuckCheckSeconds int `mapstructure:"stuck_check_seconds" validate:"required,gt=0"`

	// SweepMinutes is how often expired task, cache and artifact records
	// are removed.
	SweepMinutes int `mapstructure:"sweep_minutes" validate:"required,gt=0"`
}

// RetryDelay returns the backoff base between retries as a duration.
func (c ConversionConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// Timeout returns the conversion ceiling as a duration.
func (c ConversionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TaskTTL returns the task record time-to-live as a duration.
func (c ConversionConfig) TaskTTL() time.Duration {
	return time.Duration(c.TaskTTLHours) * time.Hour
}

// CacheTTL returns the result cache validity window as a duration.
func (c ConversionConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// StuckCheckInterval returns the stuck-task scan interval as a duration.
func (c ConversionConfig) StuckCheckInterval() time.Duration {
	return time.Duration(c.StuckCheckSeconds) * time.Second
}

// SweepInterval returns the expiry sweep interval as a duration.
func (c ConversionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepMinutes) * time.Minute
}

// ProviderConfig configures the remote conversion provider backend.
// APIKey may legitimately be empty when the pipeline backend is selected;
// a missing key with the remote backend surfaces as a per-task
// configuration error rather than a startup failure, matching how operators
// encounter it in practice.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	APIHost string `mapstructure:"api_host"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// PipelineConfig configures the local subprocess backend.
type PipelineConfig struct {
	YtDlpPath  string `mapstructure:"ytdlp_path"`
	FfmpegPath string `mapstructure:"ffmpeg_path"`
}
