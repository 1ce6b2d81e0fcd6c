package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/nidhogg/skillbook/internal/locale"
)

// Config is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Content  ContentConfig  `json:"content"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN           string `json:"dsn"`
	MigrationsDir string `json:"migrations_dir"`
}

// Neo4jConfig is optional; an empty URI disables the prerequisite graph.
type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// RedisConfig is optional; an empty URL disables commit events.
type RedisConfig struct {
	URL          string `json:"url"`
	StreamMaxLen int64  `json:"stream_max_len"`
}

type ContentConfig struct {
	SupportedLanguages []string `json:"supported_languages"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file, substitutes environment variable
// references and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a config document. See Load.
func Parse(data []byte) (*Config, error) {
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		if v := os.Getenv(parts[1]); v != "" {
			return v
		}
		return parts[2]
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Postgres.MigrationsDir == "" {
		c.Database.Postgres.MigrationsDir = "migrations"
	}
	if c.Database.Redis.StreamMaxLen == 0 {
		c.Database.Redis.StreamMaxLen = 10000
	}
	if len(c.Content.SupportedLanguages) == 0 {
		c.Content.SupportedLanguages = append([]string(nil), locale.DefaultSupported...)
	}
}

func (c *Config) validate() error {
	if c.Database.Postgres.DSN == "" {
		return fmt.Errorf("config: database.postgres.dsn is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	for _, code := range c.Content.SupportedLanguages {
		if code == "" {
			return fmt.Errorf("config: empty language code in content.supported_languages")
		}
	}
	return nil
}
