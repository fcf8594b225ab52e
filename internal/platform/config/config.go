// Package config loads the gateway's runtime configuration: a layered
// viper setup (defaults, optional file, DASH2HLS_*-prefixed environment
// variables) for structured settings, plus the teacher's dotenv-based
// helpers for ad hoc local overrides that viper doesn't model (e.g.
// per-run API headers a developer wants to inject without touching a
// config file).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the gateway's structured runtime settings.
type Config struct {
	Port               string
	OutputRoot         string
	DefaultPollInterval time.Duration
	DefaultWindowSize   int
	DefaultHistorySize  int
	Mp4decryptPath      string
	HTTPClientTimeout   time.Duration
	SubprocessTimeout   time.Duration
	LogLevel            string
	LogFormat           string
}

// Load populates viper from built-in defaults, an optional config file
// (config.yaml/config.toml/... searched in the working directory and
// /etc/dash2hls), and DASH2HLS_*-prefixed environment variables, in that
// increasing order of precedence. It also loads a local .env file (if
// present) for developer overrides outside viper's purview; a missing
// .env is not an error.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix("DASH2HLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("output_root", "./output")
	v.SetDefault("default_poll_interval", "4s")
	v.SetDefault("default_window_size", 6)
	v.SetDefault("default_history_size", 128)
	v.SetDefault("mp4decrypt_path", "mp4decrypt")
	v.SetDefault("http_client_timeout", "15s")
	v.SetDefault("subprocess_timeout", "30s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/dash2hls")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	pollInterval, err := time.ParseDuration(v.GetString("default_poll_interval"))
	if err != nil {
		pollInterval = 4 * time.Second
	}
	httpTimeout, err := time.ParseDuration(v.GetString("http_client_timeout"))
	if err != nil {
		httpTimeout = 15 * time.Second
	}
	subprocessTimeout, err := time.ParseDuration(v.GetString("subprocess_timeout"))
	if err != nil {
		subprocessTimeout = 30 * time.Second
	}

	return Config{
		Port:                v.GetString("port"),
		OutputRoot:          v.GetString("output_root"),
		DefaultPollInterval: pollInterval,
		DefaultWindowSize:   v.GetInt("default_window_size"),
		DefaultHistorySize:  v.GetInt("default_history_size"),
		Mp4decryptPath:      v.GetString("mp4decrypt_path"),
		HTTPClientTimeout:   httpTimeout,
		SubprocessTimeout:   subprocessTimeout,
		LogLevel:            v.GetString("log_level"),
		LogFormat:           v.GetString("log_format"),
	}, nil
}

// GetEnv returns the value of the environment variable named by key, or
// fallback if the variable is unset or empty. Kept for callers that need
// a raw env lookup outside the viper-managed Config.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named
// by key, or fallback if unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
