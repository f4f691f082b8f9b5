// File: internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebConfig struct {
	Port      int    `yaml:"port"`
	APIKey    string `yaml:"api_key"`    // bearer key for admin routes
	JWTSecret string `yaml:"jwt_secret"` // HMAC secret for admin sessions
}

type CodesConfig struct {
	MaxBatchSize       int     `yaml:"max_batch_size"`
	AttemptsPerCode    int     `yaml:"attempts_per_code"`
	CollisionThreshold float64 `yaml:"collision_threshold"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Web      WebConfig      `yaml:"web"`
	Codes    CodesConfig    `yaml:"codes"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Codes.MaxBatchSize <= 0 {
		cfg.Codes.MaxBatchSize = 10000
	}
	if cfg.Codes.AttemptsPerCode <= 0 {
		cfg.Codes.AttemptsPerCode = 100
	}
	if cfg.Codes.CollisionThreshold <= 0 {
		cfg.Codes.CollisionThreshold = 0.001
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}
