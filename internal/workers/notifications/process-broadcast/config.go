package processbroadcast

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled   bool          `mapstructure:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BatchSize int           `mapstructure:"batch_size"` // recipients fetched per page
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Timeout:   10 * time.Minute,
		BatchSize: 200,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	return nil
}
