// Package config loads the company service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// StoreKind selects the persistence backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreMongo    StoreKind = "mongo"
	StorePostgres StoreKind = "postgres"
)

// Config is the root of config.yaml.
type Config struct {
	HTTPPort           int            `yaml:"http_port"`
	GRPCPort           int            `yaml:"grpc_port"`
	Store              StoreKind      `yaml:"store"`
	Seed               bool           `yaml:"seed"`
	ConnectRetries     int            `yaml:"connect_retries"`
	CORSAllowedOrigins []string       `yaml:"cors_allowed_origins"`
	Log                LogConfig      `yaml:"log"`
	Mongo              MongoConfig    `yaml:"mongo"`
	Postgres           PostgresConfig `yaml:"postgres"`
	Kafka              KafkaConfig    `yaml:"kafka"`

	// Source is the absolute path the config was read from; empty when
	// the file was missing and defaults apply.
	Source string `yaml:"-"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// KafkaConfig enables change events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		HTTPPort:           5000,
		GRPCPort:           50051,
		Store:              StoreMemory,
		Seed:               true,
		ConnectRetries:     3,
		CORSAllowedOrigins: []string{"*"},
		Log:                LogConfig{Level: "info"},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "company-management",
			Collection: "companies",
		},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "companies",
			SSLMode: "disable",
		},
		Kafka: KafkaConfig{Topic: "company_events"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = path
	if abs, err := filepath.Abs(path); err == nil {
		cfg.Source = abs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreMongo, StorePostgres:
	default:
		return fmt.Errorf("unknown store %q (want memory, mongo or postgres)", c.Store)
	}
	if err := validPort("http_port", c.HTTPPort); err != nil {
		return err
	}
	if err := validPort("grpc_port", c.GRPCPort); err != nil {
		return err
	}
	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("http_port and grpc_port must differ, both are %d", c.HTTPPort)
	}
	if c.ConnectRetries < 0 {
		return fmt.Errorf("connect_retries must not be negative, got %d", c.ConnectRetries)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when brokers are configured")
	}
	return nil
}

func validPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

// NewLogger builds the process logger: JSON in production, console output
// in development.
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
