package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full runtime configuration for both the server and the worker client.
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath     string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"./data/client.db"`
	CredentialsPath string `yaml:"credentials_path" env:"CREDENTIALS_PATH" env-default:"./data/credentials.yaml"`

	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Device  DeviceConfig  `yaml:"device"`
	Sync    SyncConfig    `yaml:"sync"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
}

type ServerConfig struct {
	Address      string `yaml:"address" env:"SERVER_ADDRESS" env-default:":8080"`
	DatabasePath string `yaml:"database_path" env:"SERVER_DATABASE_PATH" env-default:"./data/server.db"`
	JWTSecret    string `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"dev-secret-change-me"`
	JWTIssuer    string `yaml:"jwt_issuer" env:"JWT_ISSUER" env-default:"process-tracker"`
	// Token lifetime in seconds.
	TokenTTL int `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"604800"`
	// Process list cache lifetime in seconds.
	ProcessCacheTTL int    `yaml:"process_cache_ttl" env:"PROCESS_CACHE_TTL" env-default:"60"`
	AllowedOrigin   string `yaml:"allowed_origin" env:"ALLOWED_ORIGIN" env-default:"*"`
	MaxPhotoBytes   int64  `yaml:"max_photo_bytes" env:"MAX_PHOTO_BYTES" env-default:"10485760"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url" env:"BACKEND_URL" env-default:"http://localhost:8080"`
	// Request timeout in seconds.
	Timeout int `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"15"`
}

type DeviceConfig struct {
	ID   string `yaml:"id" env:"DEVICE_ID"`
	Name string `yaml:"name" env:"DEVICE_NAME"`
}

type SyncConfig struct {
	// Connectivity probe interval in seconds.
	ProbeInterval int `yaml:"probe_interval" env:"SYNC_PROBE_INTERVAL" env-default:"30"`
	// Timer display refresh interval in seconds.
	TimerTick int `yaml:"timer_tick" env:"TIMER_TICK" env-default:"1"`
}

// LoadConfig reads the YAML file at path and applies environment overrides.
// A missing file is not an error: defaults and environment are used instead.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			return &cfg, cfg.validate()
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.StoragePath) == "" {
		return errors.New("storage_path is required")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend.timeout must be > 0")
	}
	if c.Sync.ProbeInterval <= 0 {
		return errors.New("sync.probe_interval must be > 0")
	}
	if c.Sync.TimerTick <= 0 {
		return errors.New("sync.timer_tick must be > 0")
	}
	if c.Server.TokenTTL <= 0 {
		return errors.New("server.token_ttl must be > 0")
	}
	if c.Env == "production" && c.Server.JWTSecret == "dev-secret-change-me" {
		return errors.New("server.jwt_secret must be set in production")
	}
	return nil
}
