package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration values.
type Config struct {
	AppName         string        `toml:"app_name"`
	Secret          string        `toml:"secret"`
	DatabaseDSN     string        `toml:"database_dsn"`
	HTTPPort        string        `toml:"http_port"`
	APIPrefix       string        `toml:"api_prefix"`
	AccessTokenTTL  time.Duration `toml:"-"`
	RefreshTokenTTL time.Duration `toml:"-"`
	AdminEmail      string        `toml:"admin_email"`
	AdminPassword   string        `toml:"admin_password"`
	AdminName       string        `toml:"admin_name"`
	LogLevel        string        `toml:"log_level"`
	LogPretty       bool          `toml:"log_pretty"`
	CORSOrigins     []string      `toml:"cors_origins"`
	ServicesCSV     string        `toml:"services_csv"`

	AccessTokenMinutes int `toml:"access_token_minutes"`
	RefreshTokenDays   int `toml:"refresh_token_days"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		AppName:            "Frizerie",
		Secret:             "dev_secret",
		DatabaseDSN:        "sql_app.db",
		HTTPPort:           "8000",
		APIPrefix:          "/api/v1",
		AdminName:          "Administrator",
		LogLevel:           "info",
		AccessTokenMinutes: 30,
		RefreshTokenDays:   7,
		AccessTokenTTL:     30 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
	}
}

// Load reads configuration from an optional TOML file named by FRIZERIE_CONFIG
// and then from environment variables, which take precedence.
func Load() Config {
	cfg := Defaults()

	if path := os.Getenv("FRIZERIE_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("unable to read config file, using defaults")
		}
	}

	setString(&cfg.AppName, "APP_NAME")
	setString(&cfg.Secret, "SECRET")
	setString(&cfg.DatabaseDSN, "DATABASE_DSN")
	setString(&cfg.HTTPPort, "HTTP_PORT")
	setString(&cfg.APIPrefix, "API_PREFIX")
	setString(&cfg.AdminEmail, "ADMIN_EMAIL")
	setString(&cfg.AdminPassword, "ADMIN_PASSWORD")
	setString(&cfg.AdminName, "ADMIN_NAME")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.ServicesCSV, "SERVICES_CSV")
	setInt(&cfg.AccessTokenMinutes, "ACCESS_TOKEN_TTL", 30)
	setInt(&cfg.RefreshTokenDays, "REFRESH_TOKEN_TTL", 7)

	if v := os.Getenv("LOG_PRETTY"); v != "" {
		cfg.LogPretty, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		log.Warn().Str("value", cfg.HTTPPort).Msg("invalid HTTP_PORT value, defaulting to 8000")
		cfg.HTTPPort = "8000"
	}
	// "" mounts the API at the root; otherwise the prefix is "/x" with no
	// trailing slash.
	cfg.APIPrefix = strings.Trim(strings.TrimSpace(cfg.APIPrefix), "/")
	if cfg.APIPrefix != "" {
		cfg.APIPrefix = "/" + cfg.APIPrefix
	} else {
		log.Info().Msg("API_PREFIX is empty, mounting the API at the root")
	}

	cfg.AccessTokenTTL = time.Duration(cfg.AccessTokenMinutes) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(cfg.RefreshTokenDays) * 24 * time.Hour
	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string, fallback int) {
	v := os.Getenv(key)
	if v == "" {
		if *dst <= 0 {
			*dst = fallback
		}
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Int("default", fallback).Msg("invalid numeric value")
		*dst = fallback
		return
	}
	*dst = n
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
