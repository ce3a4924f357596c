package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Pagination PaginationConfig
	Location   LocationConfig
	Search     SearchConfig
	Log        LogConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	PingAttempts int
}

type CORSConfig struct {
	Origins []string
}

type PaginationConfig struct {
	DefaultLimit int
	MinLimit     int
	MaxLimit     int
}

// LocationConfig tunes pickup location keyword extraction. StopWords is
// dataset dependent and expected to change with the data.
type LocationConfig struct {
	MinTokenLength int
	Separators     string
	StopWords      []string
}

type SearchConfig struct {
	// Mode is "auto", "pushdown" or "memory".
	Mode string
}

type LogConfig struct {
	Level string
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.url", "file:carrental.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.ping_attempts", 10)
	v.SetDefault("cors.origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("pagination.default_limit", 12)
	v.SetDefault("pagination.min_limit", 1)
	v.SetDefault("pagination.max_limit", 50)
	v.SetDefault("location.min_token_length", 3)
	v.SetDefault("location.separators", `[\s\-,+]+`)
	v.SetDefault("location.stop_words", []string{})
	v.SetDefault("search.mode", "auto")
	v.SetDefault("log.level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by the deployment environment.
	_ = v.BindEnv("server.address", "SERVER_ADDRESS")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("cors.origins", "CORS_ORIGINS")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

// Load reads .env (if any), the optional config file at path, and the
// environment into a Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from already populated settings.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address: v.GetString("server.address"),
		},
		Database: DatabaseConfig{
			URL:          v.GetString("database.url"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			PingAttempts: v.GetInt("database.ping_attempts"),
		},
		CORS: CORSConfig{
			Origins: splitList(v.Get("cors.origins")),
		},
		Pagination: PaginationConfig{
			DefaultLimit: v.GetInt("pagination.default_limit"),
			MinLimit:     v.GetInt("pagination.min_limit"),
			MaxLimit:     v.GetInt("pagination.max_limit"),
		},
		Location: LocationConfig{
			MinTokenLength: v.GetInt("location.min_token_length"),
			Separators:     v.GetString("location.separators"),
			StopWords:      splitList(v.Get("location.stop_words")),
		},
		Search: SearchConfig{
			Mode: strings.ToLower(v.GetString("search.mode")),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	p := c.Pagination
	if p.MinLimit < 1 {
		return errors.New("config: pagination.min_limit must be at least 1")
	}
	if p.MaxLimit < p.MinLimit {
		return fmt.Errorf("config: pagination.max_limit %d below min_limit %d", p.MaxLimit, p.MinLimit)
	}
	if p.DefaultLimit < p.MinLimit || p.DefaultLimit > p.MaxLimit {
		return fmt.Errorf("config: pagination.default_limit %d outside [%d, %d]", p.DefaultLimit, p.MinLimit, p.MaxLimit)
	}
	if c.Database.URL == "" {
		return errors.New("config: database.url is empty")
	}
	switch c.Search.Mode {
	case "", "auto", "pushdown", "memory":
	default:
		return fmt.Errorf("config: unknown search.mode %q", c.Search.Mode)
	}
	return nil
}

// splitList accepts either a list value (config file) or a comma separated
// string (environment).
func splitList(raw interface{}) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []interface{}:
		for _, it := range val {
			items = append(items, fmt.Sprint(it))
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
