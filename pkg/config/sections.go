package config

import (
	"fmt"
	"os"
	"time"
)

// PriorityFloor is the lowest priority retry decay can push a job to.
const PriorityFloor = -100

// DatabaseConfig describes the Postgres connection. The password is resolved
// from the environment variable named by PasswordEnv, never stored in YAML.
type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"ssl_mode"`
	PoolMin     int    `yaml:"pool_min"`
	PoolMax     int    `yaml:"pool_max"`
}

func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Host:        "localhost",
		Port:        5432,
		User:        "engagic",
		PasswordEnv: "ENGAGIC_DB_PASSWORD",
		Name:        "engagic",
		SSLMode:     "disable",
		PoolMin:     10,
		PoolMax:     100,
	}
}

// Password resolves the database password from the environment.
func (c *DatabaseConfig) Password() string {
	return os.Getenv(c.PasswordEnv)
}

func (c *DatabaseConfig) validate() error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.Host == "" || c.Name == "" || c.User == "" {
		return fmt.Errorf("%w: host, name, and user are required", ErrMissingRequiredField)
	}
	if c.PoolMin < 1 || c.PoolMax < c.PoolMin {
		return fmt.Errorf("%w: pool_min/pool_max (%d/%d)", ErrInvalidValue, c.PoolMin, c.PoolMax)
	}
	return nil
}

// QueueConfig controls the worker pool and the durable queue's retry and
// staleness behavior.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per process.
	WorkerCount int `yaml:"worker_count"`

	// Banana binds every worker in this process to one city. Empty means
	// workers poll across all cities.
	Banana string `yaml:"banana"`

	// PollInterval is the base wait between dequeue attempts when the queue
	// is empty; PollIntervalJitter is the random spread around it.
	PollInterval       time.Duration `yaml:"poll_interval"`
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// JobTimeout bounds a single job execution.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// GracefulShutdownTimeout is how long Stop waits for in-flight jobs.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// StalenessThreshold is how long a job may sit in processing before the
	// sweep (or a competing enqueue) reclaims it. Must exceed JobTimeout.
	StalenessThreshold time.Duration `yaml:"staleness_threshold"`

	// StaleSweepInterval is how often the pool scans for stale jobs.
	StaleSweepInterval time.Duration `yaml:"stale_sweep_interval"`

	// RetryCap is the retry count at which a job moves to dead_letter.
	RetryCap int `yaml:"retry_cap"`
}

func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		PollInterval:            5 * time.Second,
		PollIntervalJitter:      1 * time.Second,
		JobTimeout:              30 * time.Minute,
		GracefulShutdownTimeout: 30 * time.Minute,
		StalenessThreshold:      60 * time.Minute,
		StaleSweepInterval:      5 * time.Minute,
		RetryCap:                3,
	}
}

func (c *QueueConfig) validate() error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be >= 1", ErrInvalidValue)
	}
	if c.RetryCap < 1 {
		return fmt.Errorf("%w: retry_cap must be >= 1", ErrInvalidValue)
	}
	if c.PollInterval <= 0 || c.JobTimeout <= 0 || c.StaleSweepInterval <= 0 {
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidValue)
	}
	if c.PollIntervalJitter < 0 || c.PollIntervalJitter >= c.PollInterval {
		return fmt.Errorf("%w: poll_interval_jitter must be in [0, poll_interval)", ErrInvalidValue)
	}
	if c.StalenessThreshold <= c.JobTimeout {
		return fmt.Errorf("%w: staleness_threshold (%v) must exceed job_timeout (%v) or running jobs get double-claimed",
			ErrInvalidValue, c.StalenessThreshold, c.JobTimeout)
	}
	return nil
}

// LLMConfig controls the Anthropic summarizer.
type LLMConfig struct {
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// Model is the Anthropic model identifier.
	Model string `yaml:"model"`

	// MaxTokens caps the response length per summarization call.
	MaxTokens int `yaml:"max_tokens"`

	// Concurrency caps in-flight LLM calls per process.
	Concurrency int `yaml:"concurrency"`

	// CallTimeout bounds one summarization call including retries inside it.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// RetryBudget is the total elapsed time backoff may spend retrying a
	// rate-limited or transiently failing call.
	RetryBudget time.Duration `yaml:"retry_budget"`
}

func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		APIKeyEnv:   "ANTHROPIC_API_KEY",
		Model:       "claude-sonnet-4-5",
		MaxTokens:   2048,
		Concurrency: 3,
		CallTimeout: 5 * time.Minute,
		RetryBudget: 3 * time.Minute,
	}
}

// APIKey resolves the API key from the environment.
func (c *LLMConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

func (c *LLMConfig) validate() error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model", ErrMissingRequiredField)
	}
	if c.APIKeyEnv == "" {
		return fmt.Errorf("%w: api_key_env", ErrMissingRequiredField)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be >= 1", ErrInvalidValue)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: max_tokens must be >= 1", ErrInvalidValue)
	}
	if c.CallTimeout <= 0 || c.RetryBudget <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidValue)
	}
	return nil
}

// ProcessorConfig controls meeting/matter job execution.
type ProcessorConfig struct {
	// ItemTimeout bounds one item summarization, fetch plus LLM call.
	ItemTimeout time.Duration `yaml:"item_timeout"`

	// TopicLimit caps the number of meeting-level topics kept after
	// frequency aggregation.
	TopicLimit int `yaml:"topic_limit"`
}

func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{
		ItemTimeout: 5 * time.Minute,
		TopicLimit:  5,
	}
}

func (c *ProcessorConfig) validate() error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.ItemTimeout <= 0 {
		return fmt.Errorf("%w: item_timeout must be positive", ErrInvalidValue)
	}
	if c.TopicLimit < 1 {
		return fmt.Errorf("%w: topic_limit must be >= 1", ErrInvalidValue)
	}
	return nil
}

// RetentionConfig controls the background cleanup of terminal queue jobs and
// expired cache rows.
type RetentionConfig struct {
	// CompletedJobRetention is how long completed queue rows are kept for
	// diagnostics before deletion.
	CompletedJobRetention time.Duration `yaml:"completed_job_retention"`

	// FailedJobRetention is how long failed and dead_letter rows are kept.
	// Longer than completed retention so operators can triage them.
	FailedJobRetention time.Duration `yaml:"failed_job_retention"`

	// CleanupInterval is how often the retention sweep runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		CompletedJobRetention: 7 * 24 * time.Hour,
		FailedJobRetention:    30 * 24 * time.Hour,
		CleanupInterval:       1 * time.Hour,
	}
}

func (c *RetentionConfig) validate() error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.CompletedJobRetention <= 0 || c.FailedJobRetention <= 0 || c.CleanupInterval <= 0 {
		return fmt.Errorf("%w: retention durations must be positive", ErrInvalidValue)
	}
	if c.FailedJobRetention < c.CompletedJobRetention {
		return fmt.Errorf("%w: failed_job_retention (%v) must be >= completed_job_retention (%v)",
			ErrInvalidValue, c.FailedJobRetention, c.CompletedJobRetention)
	}
	return nil
}

// FetchConfig controls the document fetcher and PDF extraction.
type FetchConfig struct {
	// RecycleAfter is the request count after which the HTTP client is
	// rebuilt, dropping pooled connections some vendor CDNs poison.
	RecycleAfter int `yaml:"recycle_after"`

	// RequestTimeout bounds one document download.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxBodyBytes caps a single downloaded document.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ExtractTimeout bounds text extraction of one document.
	ExtractTimeout time.Duration `yaml:"extract_timeout"`

	// UserAgent is sent on every fetch.
	UserAgent string `yaml:"user_agent"`
}

func DefaultFetchConfig() *FetchConfig {
	return &FetchConfig{
		RecycleAfter:   100,
		RequestTimeout: 60 * time.Second,
		MaxBodyBytes:   100 << 20,
		ExtractTimeout: 10 * time.Minute,
		UserAgent:      "engagic/1.0 (civic agenda pipeline)",
	}
}

func (c *FetchConfig) validate() error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.RecycleAfter < 1 {
		return fmt.Errorf("%w: recycle_after must be >= 1", ErrInvalidValue)
	}
	if c.RequestTimeout <= 0 || c.ExtractTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidValue)
	}
	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("%w: max_body_bytes must be >= 1", ErrInvalidValue)
	}
	return nil
}
