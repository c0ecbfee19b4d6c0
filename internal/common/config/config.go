package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Database DatabaseConfig          `mapstructure:"database"`
	Queue    QueueConfig             `mapstructure:"queue"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Email    EmailConfig             `mapstructure:"email"`
	SMS      SMSConfig               `mapstructure:"sms"`
	Site     SiteConfig              `mapstructure:"site"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ElasticsearchConfig configures the optional delivery-audit index.
// Leaving Addresses empty disables audit indexing entirely.
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// QueueConfig holds settings for the redis-backed job queue.
type QueueConfig struct {
	Key               string `mapstructure:"key"`
	PollInterval      int    `mapstructure:"poll_interval"`      // milliseconds
	VisibilityTimeout int    `mapstructure:"visibility_timeout"` // milliseconds
	BatchSize         int    `mapstructure:"batch_size"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Timeout    int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries int  `mapstructure:"max_retries"` // send attempts beyond the first
}

// EmailConfig holds transport settings for the email channel. SMTP settings act
// as the static fallback when no EmailConfiguration row is active. When SES is
// enabled it takes precedence over SMTP entirely.
type EmailConfig struct {
	SMTP struct {
		Host        string `mapstructure:"host"`
		Port        int    `mapstructure:"port"`
		Username    string `mapstructure:"username"`
		Password    string `mapstructure:"password"`
		UseTLS      bool   `mapstructure:"use_tls"`
		DefaultFrom string `mapstructure:"default_from"`
		Timeout     int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"smtp"`
	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		Region    string `mapstructure:"region"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
}

// SMSConfig selects the SMS transport: "console" for non-production, "sns"
// for the AWS gateway.
type SMSConfig struct {
	Backend string `mapstructure:"backend"`
	SNS     struct {
		Region   string `mapstructure:"region"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sns"`
}

// SiteConfig holds values injected into every template rendering context.
type SiteConfig struct {
	Name string `mapstructure:"name"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
