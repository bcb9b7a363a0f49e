package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	AWS           AWSConfig           `yaml:"aws"`
	JWT           JWTConfig           `yaml:"jwt"`
	Log           LogConfig           `yaml:"log"`
	Redis         RedisConfig         `yaml:"redis"`
	Moderation    ModerationConfig    `yaml:"moderation"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	APNS          APNSConfig          `yaml:"apns"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AWSConfig holds object storage configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`   // custom S3-compatible endpoint, optional
	PublicURL string `yaml:"public_url"` // base URL served to clients, optional
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// RedisConfig holds redis configuration; an empty address disables
// rate limiting.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ModerationConfig holds the external safety classifier configuration.
// An empty endpoint or key is a valid state: the service then runs on the
// local fallback policy only.
type ModerationConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	APIKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// TranscriptionConfig holds the external transcription service
// configuration. An empty endpoint disables the in-process voice worker;
// processing-status transitions then come from an out-of-band job.
type TranscriptionConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	APIKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// APNSConfig holds Apple push configuration
type APNSConfig struct {
	CertFile   string `yaml:"cert_file"`
	CertPass   string `yaml:"cert_pass"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Moderation.RequestTimeout <= 0 {
		cfg.Moderation.RequestTimeout = 3 * time.Second
	}
	if cfg.Transcription.RequestTimeout <= 0 {
		cfg.Transcription.RequestTimeout = 30 * time.Second
	}
	if cfg.Transcription.PollInterval <= 0 {
		cfg.Transcription.PollInterval = 10 * time.Second
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
