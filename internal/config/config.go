package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Publisher PublisherConfig `mapstructure:"publisher" validate:"required"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle" validate:"required"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig contains the connection settings shared by the job queue and
// the push notification channel.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// LLMConfig contains all generation model related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	TextModel         string `mapstructure:"text_model" validate:"required"`
	ImageModel        string `mapstructure:"image_model"`
	ImageOutputDir    string `mapstructure:"image_output_dir"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// PublisherConfig contains the settings for the downstream publishing
// platform.
type PublisherConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// LifecycleConfig tunes the job watching and polling behavior.
type LifecycleConfig struct {
	WatchTimeoutSeconds      int  `mapstructure:"watch_timeout_seconds" validate:"required,gt=0"`
	ImagePollIntervalSeconds int  `mapstructure:"image_poll_interval_seconds" validate:"required,gt=0"`
	ImagePollTimeoutSeconds  int  `mapstructure:"image_poll_timeout_seconds" validate:"required,gt=0"`
	ImageGenerationEnabled   bool `mapstructure:"image_generation_enabled"`
}

// WorkerConfig tunes the background job processor.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=0"`
}
