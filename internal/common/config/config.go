package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Auth          AuthConfig         `mapstructure:"auth"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Sweeper       SweeperConfig      `mapstructure:"sweeper"`
	Queue         QueueConfig        `mapstructure:"queue"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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

// GetDSN returns the PostgreSQL connection string.
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

// StorageConfig holds settings for the CV blob store.
type StorageConfig struct {
	S3 struct {
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		KeyPrefix string `mapstructure:"key_prefix"`
	} `mapstructure:"s3"`
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// AuthConfig holds settings for bearer-token actor resolution.
// Token issuance is owned by the identity service, not this API.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// NotificationConfig holds settings for applicant emails and operator alerts.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	Ops struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"ops"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	DedupWindow int `mapstructure:"dedup_window"` // seconds
}

// SweeperConfig holds settings for the stale-application sweep.
type SweeperConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	StaleDays int    `mapstructure:"stale_days"`
	Schedule  string `mapstructure:"schedule"` // cron expression
}

// QueueConfig holds settings for the background work queue.
type QueueConfig struct {
	Key         string `mapstructure:"key"`
	DeadKey     string `mapstructure:"dead_key"`
	Consumers   int    `mapstructure:"consumers"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	Backoff     int    `mapstructure:"backoff"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
