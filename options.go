package cloudxfer

import (
	"regexp"
	"time"
)

const (
	defaultMaxFileSize        = 5 << 40 // 5 TB
	defaultMinFileSize        = 0
	defaultChunkSize          = 10 << 20 // 10 MiB
	defaultChunkThreshold     = defaultChunkSize
	defaultResumableChunkSize = 5 << 20 // 5 MiB
	defaultMaxCollisionSuffix = 100
	defaultMaxRetryAttempts   = 5
	defaultInitialDelay       = 1 * time.Second
	defaultMaxDelay           = 30 * time.Second
)

type CoordinatorOption func(*Coordinator)

// WithMaxFileSize sets the maximum file size allowed for upload.
// Default is 0 (no limit).
func WithMaxFileSize(size int64) CoordinatorOption {
	if size <= 0 {
		size = defaultMaxFileSize
	}
	return func(c *Coordinator) {
		c.fileRule.MaxFileSize = size
	}
}

// WithMinFileSize sets the minimum file size required for upload.
// Default is 0 (no limit).
func WithMinFileSize(size int64) CoordinatorOption {
	if size <= 0 {
		size = defaultMinFileSize
	}
	return func(c *Coordinator) {
		c.fileRule.MinFileSize = size
	}
}

// WithExtensionWhitelist sets the list of allowed file extensions for upload.
// Default is empty (no restriction).
func WithExtensionWhitelist(extensions ...string) CoordinatorOption {
	return func(c *Coordinator) {
		c.fileRule.ExtensionWhitelist = extensions
	}
}

// WithExtensionBlacklist sets the list of blocked file extensions for upload.
// Default is empty (no restriction).
func WithExtensionBlacklist(extensions ...string) CoordinatorOption {
	return func(c *Coordinator) {
		c.fileRule.ExtensionBlacklist = extensions
	}
}

// WithModifiedAfter sets the minimum modified time required for upload.
// Default is zero (no restriction).
func WithModifiedAfter(modTime time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.fileRule.ModifiedAfter = modTime
	}
}

// WithModifiedBefore sets the maximum modified time required for upload.
// Default is zero (no restriction).
func WithModifiedBefore(modTime time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.fileRule.ModifiedBefore = modTime
	}
}

// WithFileNamePattern sets the regular expression pattern for file names.
// Default is nil (no restriction).
func WithFileNamePattern(pattern *regexp.Regexp) CoordinatorOption {
	return func(c *Coordinator) {
		c.fileRule.FileNamePattern = pattern
	}
}

// WithChunkThreshold sets the size above which uploads are chunked or
// resumable. Default is 10 MiB.
func WithChunkThreshold(size int64) CoordinatorOption {
	if size <= 0 {
		size = defaultChunkThreshold
	}
	return func(c *Coordinator) {
		c.chunkThreshold = size
	}
}

// WithChunkSize sets the size of the chunks of a chunked upload.
// Default is 10 MiB.
func WithChunkSize(size int64) CoordinatorOption {
	if size <= 0 {
		size = defaultChunkSize
	}
	return func(c *Coordinator) {
		c.chunkSize = size
	}
}

// WithResumableChunkSize sets the size of the requests of a resumable
// upload. Default is 5 MiB.
func WithResumableChunkSize(size int64) CoordinatorOption {
	if size <= 0 {
		size = defaultResumableChunkSize
	}
	return func(c *Coordinator) {
		c.resumableChunkSize = size
	}
}

// WithRateLimit throttles every transfer to bytesPerSec.
// Default is 0 (unlimited).
func WithRateLimit(bytesPerSec float64) CoordinatorOption {
	return func(c *Coordinator) {
		c.rateLimit = max(bytesPerSec, 0)
	}
}

// WithNotifier sets the sink of terminal events.
// Default is a LogNotifier.
func WithNotifier(notifier Notifier) CoordinatorOption {
	return func(c *Coordinator) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

// WithMaxCollisionSuffix bounds the "name (n).ext" search of the conflict
// resolver. Default is 100.
func WithMaxCollisionSuffix(n int) CoordinatorOption {
	if n <= 0 {
		n = defaultMaxCollisionSuffix
	}
	return func(c *Coordinator) {
		c.conflicts.maxSuffix = n
	}
}

// WithDisabledRetry disables the retry of the remote folder creation.
// Default is false (enabled).
func WithDisabledRetry() CoordinatorOption {
	return func(c *Coordinator) {
		c.disabledRetry = true
	}
}

// RetryConfig defines a retry with exponential backoff.
type RetryConfig struct {
	// MaxRetryAttempts is the maximum number of retry attempts, default = 5.
	MaxRetryAttempts int `mapstructure:"max_attempts"`
	// InitialDelay is the initial delay before the first retry, default = 1 second.
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	// MaxDelay is the maximum delay between retries, default = 30 seconds.
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

func (rc RetryConfig) withDefaults() RetryConfig {
	if rc.MaxRetryAttempts <= 0 {
		rc.MaxRetryAttempts = defaultMaxRetryAttempts
	}
	if rc.InitialDelay <= 0 {
		rc.InitialDelay = defaultInitialDelay
	}
	if rc.MaxDelay <= 0 {
		rc.MaxDelay = defaultMaxDelay
	}
	return rc
}

// WithRetryConfig sets the retry of the remote folder creation.
// Support partial configuration, default values will be used if not set.
func WithRetryConfig(config RetryConfig) CoordinatorOption {
	config = config.withDefaults()
	return func(c *Coordinator) {
		c.retryConfig = config
	}
}

// withClock replaces time.Now, used by tests.
func withClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.now = now
	}
}
