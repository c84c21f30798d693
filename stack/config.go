package stack

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes a full local Supabase stack. Zero values fall back to the
// defaults applied by Load and DefaultConfig.
type Config struct {
	NetworkPrefix string         `yaml:"network_prefix"`
	JWTSecret     string         `yaml:"jwt_secret"`
	Postgres      PostgresConfig `yaml:"postgres"`
	Auth          ServiceConfig  `yaml:"auth"`
	PostgREST     ServiceConfig  `yaml:"postgrest"`
	Realtime      ServiceConfig  `yaml:"realtime"`
	Storage       ServiceConfig  `yaml:"storage"`
}

type PostgresConfig struct {
	Image    string `yaml:"image"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type ServiceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Tag     string `yaml:"tag"`
}

// DefaultConfig returns the stack run when no config file is given: Postgres,
// Auth and PostgREST, sharing a generated-per-stack network.
func DefaultConfig() *Config {
	return &Config{
		NetworkPrefix: "supabase",
		JWTSecret:     "super-secret-jwt-token-with-at-least-32-characters-long",
		Postgres: PostgresConfig{
			Image:    "docker.io/postgres:15-alpine",
			Database: "postgres",
			Username: "postgres",
			Password: "postgres",
		},
		Auth:      ServiceConfig{Enabled: true},
		PostgREST: ServiceConfig{Enabled: true},
	}
}

// Load reads a YAML stack config, fills in defaults for anything unset and
// applies SUPABASE_* environment overrides for secrets.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("stack: parse %s: %w", path, err)
	}
	def := DefaultConfig()
	if cfg.NetworkPrefix == "" {
		cfg.NetworkPrefix = def.NetworkPrefix
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = def.JWTSecret
	}
	if cfg.Postgres.Image == "" {
		cfg.Postgres.Image = def.Postgres.Image
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = def.Postgres.Database
	}
	if cfg.Postgres.Username == "" {
		cfg.Postgres.Username = def.Postgres.Username
	}
	if cfg.Postgres.Password == "" {
		cfg.Postgres.Password = def.Postgres.Password
	}
	// Env overrides for secrets
	if v := os.Getenv("SUPABASE_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("SUPABASE_JWT_SECRET_FILE"); v != "" {
		if b, err := os.ReadFile(v); err == nil {
			cfg.JWTSecret = strings.TrimSpace(string(b))
		}
	}
	if v := os.Getenv("SUPABASE_DB_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("network_prefix=%s postgres=%s", c.NetworkPrefix, c.Postgres.Image)
}
