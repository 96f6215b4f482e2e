// Package config loads server settings from the environment.
//
// Values come from, in order of precedence:
//  1. the process environment
//  2. a .env file in the working directory (optional)
//  3. the defaults below
//
// Example .env:
//
//	PORT=8080
//	DB_PATH=data/trashwatch.db
//	MEDIA_DIR=data/media
//	JWT_SECRET=change-me-to-something-long
//	TOKEN_TTL=24h
//	SESSION_TTL=72h
//	LOG_LEVEL=info
//	LOG_FILE=logs/trashwatch.log
//	BCRYPT_COST=12
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port       int
	DBPath     string
	MediaDir   string
	JWTSecret  string
	TokenTTL   time.Duration
	SessionTTL time.Duration
	LogLevel   slog.Level
	LogFile    string // "" logs to stdout only
	BcryptCost int
}

// Load reads the configuration. envFile may be "" to skip the .env file; a
// missing file is not an error.
func Load(envFile string) (Config, error) {
	fileEnv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileEnv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	}
	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok && v != ""
	})
}

// FromLookup builds a Config from an arbitrary key lookup. Load uses it with
// the environment; tests use it with a map.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return def
	}

	var (
		cfg  Config
		errs []error
	)

	cfg.DBPath = get("DB_PATH", "data/trashwatch.db")
	cfg.MediaDir = get("MEDIA_DIR", "data/media")
	cfg.LogFile = get("LOG_FILE", "")

	var err error
	if cfg.Port, err = strconv.Atoi(get("PORT", "8080")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a port number, got %q", get("PORT", "")))
	}

	cfg.JWTSecret = get("JWT_SECRET", "")
	if len(cfg.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}

	cfg.TokenTTL, err = positiveDuration(get("TOKEN_TTL", "24h"))
	if err != nil {
		errs = append(errs, fmt.Errorf("TOKEN_TTL: %w", err))
	}
	cfg.SessionTTL, err = positiveDuration(get("SESSION_TTL", "72h"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SESSION_TTL: %w", err))
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(get("LOG_LEVEL", "info")))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if cfg.BcryptCost, err = strconv.Atoi(get("BCRYPT_COST", "12")); err != nil {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be an integer, got %q", get("BCRYPT_COST", "")))
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
