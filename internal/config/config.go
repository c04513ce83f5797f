package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
)

const defaultSecret = "change-me"

func (c *Config) GetBaseUrl() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Load reads configuration from defaults, an optional YAML file and the
// environment (ANNOTATOR_ prefix, "." replaced by "_"). A .env file in the
// working directory is loaded first when present. An empty path looks for
// ./config.yaml.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logger.LogInfo("Loaded environment from .env")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ANNOTATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("security.jwt_secret", "ANNOTATOR_JWT_SECRET", "JWT_SECRET")
	v.BindEnv("server.port", "ANNOTATOR_SERVER_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.LogInfo("Config file not found. Using Environment Variables and Defaults.")
		} else if path != "" {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		} else {
			logger.LogWarn("Config file found but unreadable: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.BaseURL = cfg.GetBaseUrl()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "Annotator")
	v.SetDefault("app.version", "0.1.0")

	// Server
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.env", "development")

	// Database
	v.SetDefault("database.path", "./data/annotator.db")
	v.SetDefault("database.log_retention", "720h")
	v.SetDefault("database.prune_interval", "1h")

	// Guest sessions
	v.SetDefault("guest.session_timeout", "120m")
	v.SetDefault("guest.reap_interval", "10m")
	v.SetDefault("guest.cascade_dataset_annotations", false)
	v.SetDefault("guest.cascade_dataset_labels", false)
	v.SetDefault("guest.max_upload_size", "20MB")

	// Security & Limits
	v.SetDefault("security.jwt_secret", defaultSecret)
	v.SetDefault("security.token_ttl", "30m")
	v.SetDefault("security.guest_token_ttl", "120m")
	v.SetDefault("security.reset_token_ttl", "1h")
	v.SetDefault("security.cors_origins", []string{})
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests", 20)
	v.SetDefault("security.rate_limit.window", "1s")
	v.SetDefault("security.rate_limit.burst", 50)

	// Object storage
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.url_ttl", "15m")

	// Mail
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "noreply@annotator.local")

	// Caching
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_capacity", 64)
	v.SetDefault("cache.ttl", "10m")
}

func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" || c.Security.JWTSecret == defaultSecret {
		if c.IsProduction() {
			return fmt.Errorf("security.jwt_secret cannot be default or empty in production environment")
		}
		logger.LogWarn("Security Alert: Using unsafe default JWT secret. Do not use this in production!")
	}

	durations := map[string]string{
		"guest.session_timeout":      c.Guest.SessionTimeout,
		"guest.reap_interval":        c.Guest.ReapInterval,
		"security.token_ttl":         c.Security.TokenTTL,
		"security.guest_token_ttl":   c.Security.GuestTokenTTL,
		"security.reset_token_ttl":   c.Security.ResetTokenTTL,
		"security.rate_limit.window": c.Security.RateLimit.Window,
		"database.log_retention":     c.Database.LogRetention,
		"database.prune_interval":    c.Database.PruneInterval,
		"storage.url_ttl":            c.Storage.URLTTL,
		"cache.ttl":                  c.Cache.TTL,
	}
	for key, raw := range durations {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s format '%s': %v", key, raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got '%s'", key, raw)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Duration parses a validated duration field. Validate has already rejected
// malformed values, so the zero fallback is never hit after Load.
func Duration(raw string) time.Duration {
	d, _ := time.ParseDuration(raw)
	return d
}
