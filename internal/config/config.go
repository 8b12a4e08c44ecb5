package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultJWTSecret     = "default-secret-key-change-in-production"
	defaultRefreshSecret = "default-refresh-key-change-in-production"
)

type Config struct {
	Addr          string        `yaml:"addr"`
	APIPrefix     string        `yaml:"api_prefix"`
	APITimeout    time.Duration `yaml:"timeout"`
	DatabasePath  string        `yaml:"database_path"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	Debug         bool          `yaml:"debug"`
	RequireAuth   bool          `yaml:"require_auth"`
	Auth          AuthConfig    `yaml:"auth"`
	Projects      ProjectConfig `yaml:"projects"`
	Workers       WorkerConfig  `yaml:"workers"`
	MetricsEnable bool          `yaml:"metrics"`
}

type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	RefreshSecret    string        `yaml:"refresh_secret"`
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl"`
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	LockoutCooldown  time.Duration `yaml:"lockout_cooldown"`
}

type ProjectConfig struct {
	// SweepOrphans enqueues a background cleanup of a deleted project's
	// tasks, materials, budgets and cost entries.
	SweepOrphans bool `yaml:"sweep_orphans"`
}

type WorkerConfig struct {
	Count        int           `yaml:"count"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LoadConfig builds the configuration from defaults, an optional .env file,
// environment variables and finally the YAML file at path (if any).
func LoadConfig(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Addr:          getEnv("BUILT_ADDR", ":8080"),
		APIPrefix:     getEnv("BUILT_API_PREFIX", "/api/v1"),
		APITimeout:    15 * time.Second,
		DatabasePath:  getEnv("BUILT_DATABASE_PATH", "built.db"),
		CORSOrigins:   splitList(getEnv("BUILT_CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		Debug:         getEnv("BUILT_DEBUG", "false") == "true",
		MetricsEnable: true,
		Auth: AuthConfig{
			JWTSecret:        getEnv("BUILT_JWT_SECRET", defaultJWTSecret),
			RefreshSecret:    getEnv("BUILT_REFRESH_SECRET", defaultRefreshSecret),
			AccessTokenTTL:   15 * time.Minute,
			RefreshTokenTTL:  7 * 24 * time.Hour,
			MaxLoginAttempts: 5,
			LockoutCooldown:  15 * time.Minute,
		},
		Projects: ProjectConfig{SweepOrphans: true},
		Workers:  WorkerConfig{Count: 1, PollInterval: 500 * time.Millisecond},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate fills zero values with defaults and rejects configurations that
// are unsafe outside development.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("api_prefix must start with '/': %q", c.APIPrefix)
	}

	if !IsDevelopment() {
		if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret {
			return errors.New("auth.jwt_secret must be set outside development")
		}
		if c.Auth.RefreshSecret == "" || c.Auth.RefreshSecret == defaultRefreshSecret {
			return errors.New("auth.refresh_secret must be set outside development")
		}
	}
	if c.Auth.JWTSecret != "" && c.Auth.JWTSecret == c.Auth.RefreshSecret {
		return errors.New("auth.refresh_secret must differ from auth.jwt_secret")
	}

	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.MaxLoginAttempts < 0 {
		return fmt.Errorf("auth.max_login_attempts cannot be negative: %d", c.Auth.MaxLoginAttempts)
	}
	if c.Auth.LockoutCooldown <= 0 {
		c.Auth.LockoutCooldown = 15 * time.Minute
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = 1
	}
	if c.Workers.PollInterval <= 0 {
		c.Workers.PollInterval = 500 * time.Millisecond
	}

	return nil
}

// IsDevelopment reports whether BUILT_ENV selects a development environment.
func IsDevelopment() bool {
	switch strings.ToLower(os.Getenv("BUILT_ENV")) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
