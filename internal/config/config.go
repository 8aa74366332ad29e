package config

import (
	"fmt"
	"time"

	"bookingreminder/internal/application/service"
	"bookingreminder/internal/domain/policy"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port   int    `envconfig:"PORT" default:"8080"`
	DBURL  string `envconfig:"BLUEPRINT_DB_URL" default:"reminder.db"`
	LogSQL bool   `envconfig:"LOG_SQL" default:"false"`

	// LINE channel; the console transport is used when either is empty.
	ChannelSecret      string `envconfig:"CHANNEL_SECRET"`
	ChannelAccessToken string `envconfig:"CHANNEL_ACCESS_TOKEN"`

	// Delivery markers go to Redis when set, otherwise to an in-memory set.
	RedisURL             string        `envconfig:"REDIS_URL"`
	ProcessedSetCapacity int           `envconfig:"PROCESSED_SET_CAPACITY" default:"10000"`
	ProcessedTTL         time.Duration `envconfig:"PROCESSED_TTL" default:"24h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	ReminderInterval      time.Duration `envconfig:"REMINDER_INTERVAL" default:"2h"`
	ReminderMaxPerBooking int           `envconfig:"REMINDER_MAX_PER_BOOKING" default:"0"`

	WorkerConcurrency int           `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerRateLimit   int           `envconfig:"WORKER_RATE_LIMIT" default:"10"`
	WorkerRateWindow  time.Duration `envconfig:"WORKER_RATE_WINDOW" default:"1s"`
	WorkerPollSpec    string        `envconfig:"WORKER_POLL_SPEC" default:"@every 1s"`

	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"5"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"5s"`
	RetryFactor      int           `envconfig:"RETRY_FACTOR" default:"5"`

	CompletedRetention time.Duration `envconfig:"COMPLETED_RETENTION" default:"24h"`
	FailedRetention    time.Duration `envconfig:"FAILED_RETENTION" default:"168h"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid PORT %d", c.Port)
	case c.ReminderInterval <= 0:
		return fmt.Errorf("REMINDER_INTERVAL must be positive, got %s", c.ReminderInterval)
	case c.ReminderMaxPerBooking < 0:
		return fmt.Errorf("REMINDER_MAX_PER_BOOKING must not be negative, got %d", c.ReminderMaxPerBooking)
	case c.WorkerConcurrency <= 0 || c.WorkerRateLimit <= 0 || c.WorkerRateWindow <= 0:
		return fmt.Errorf("worker concurrency, rate limit and rate window must be positive")
	case c.RetryMaxAttempts <= 0 || c.RetryBaseDelay <= 0 || c.RetryFactor <= 0:
		return fmt.Errorf("retry attempts, base delay and factor must be positive")
	}
	return nil
}

// LINEEnabled reports whether LINE credentials are configured.
func (c *Config) LINEEnabled() bool {
	return c.ChannelSecret != "" && c.ChannelAccessToken != ""
}

// Retry returns the job store retry policy.
func (c *Config) Retry() policy.Retry {
	return policy.Retry{
		MaxAttempts: c.RetryMaxAttempts,
		BaseDelay:   c.RetryBaseDelay,
		Factor:      c.RetryFactor,
	}
}

// Scheduler returns the reminder scheduler settings.
func (c *Config) Scheduler() service.SchedulerConfig {
	return service.SchedulerConfig{
		Interval:      c.ReminderInterval,
		MaxPerBooking: c.ReminderMaxPerBooking,
	}
}

// Worker returns the reminder worker settings.
func (c *Config) Worker() service.WorkerConfig {
	cfg := service.DefaultWorkerConfig()
	cfg.Concurrency = c.WorkerConcurrency
	cfg.RateLimit = c.WorkerRateLimit
	cfg.RateWindow = c.WorkerRateWindow
	cfg.PollSpec = c.WorkerPollSpec
	cfg.CompletedRetention = c.CompletedRetention
	cfg.FailedRetention = c.FailedRetention
	return cfg
}
