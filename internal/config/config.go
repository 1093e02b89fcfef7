package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// ThrottleLimit caps the number of requests processed concurrently;
	// requests beyond it are rejected with 429. Zero disables throttling.
	ThrottleLimit int `mapstructure:"throttle_limit" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// PipelineConfig contains the task pipeline settings: submission retry,
// consumer redelivery, worker pool sizing and status cache expiry.
type PipelineConfig struct {
	// WorkerCount determines how many concurrent workers drain the task queue.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// QueueSize is the buffer capacity of the in-memory task queue.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// WorkDelayMs is the simulated duration of the consumer's work unit in
	// milliseconds. Real deployments plug actual processing in instead.
	WorkDelayMs int `mapstructure:"work_delay_ms" validate:"gte=0"`

	// SubmitMaxAttempts bounds the persist+enqueue submission pipeline.
	SubmitMaxAttempts int `mapstructure:"submit_max_attempts" validate:"required,gt=0"`

	// SubmitRetryDelayMs is the delay between submission attempts in milliseconds.
	SubmitRetryDelayMs int `mapstructure:"submit_retry_delay_ms" validate:"gte=0"`

	// SubmitRetryPolicy selects the submission backoff shape: fixed or exponential.
	SubmitRetryPolicy string `mapstructure:"submit_retry_policy" validate:"required,oneof=fixed exponential"`

	// ConsumerMaxAttempts is the total number of delivery attempts per message,
	// including the first.
	ConsumerMaxAttempts int `mapstructure:"consumer_max_attempts" validate:"required,gt=0"`

	// ConsumerBaseDelayMs is the base redelivery delay in milliseconds.
	ConsumerBaseDelayMs int `mapstructure:"consumer_base_delay_ms" validate:"required,gt=0"`

	// ConsumerBackoffMultiplier scales the redelivery delay on each attempt.
	ConsumerBackoffMultiplier float64 `mapstructure:"consumer_backoff_multiplier" validate:"required,gte=1"`

	// CacheTTLMinutes is the status cache entry lifetime, measured from write.
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes" validate:"required,gt=0"`
}
