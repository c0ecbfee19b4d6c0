package sendnotification

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled      bool          `mapstructure:"enabled"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`   // attempts beyond the first
	RetryBackoff time.Duration `mapstructure:"retry_backoff"` // base delay, doubled per attempt
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 60 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("retry_backoff must be positive")
	}
	return nil
}

// BackoffFor returns the delay before the next attempt: the base backoff
// doubled for every attempt already made.
func (c *Config) BackoffFor(attempt int) time.Duration {
	backoff := c.RetryBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}
