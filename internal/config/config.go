package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aiswide/gpudash/internal/branding"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Known configuration keys.
const (
	KeyAPIURL       = "api_url"
	KeyPollInterval = "poll_interval"
	KeyTimeout      = "timeout"
	KeyOutput       = "output"
)

// Defaults applied when a key is not set anywhere.
const (
	DefaultPollInterval = 15 * time.Second
	DefaultTimeout      = 30 * time.Second
	DefaultOutput       = "table"
)

// Dir returns the path to the config directory (~/.gpudash/).
// GPUDASH_HOME overrides it.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.gpudash/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
// A .env file in the working directory is loaded into the environment first,
// overriding variables that are already set.
func Load() {
	_ = godotenv.Overload()

	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyPollInterval, DefaultPollInterval)
	viper.SetDefault(KeyTimeout, DefaultTimeout)
	viper.SetDefault(KeyOutput, DefaultOutput)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file. Only values
// already in the file plus the new one are written; defaults and environment
// overrides stay out of it.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	configFile := FilePath()
	file := viper.New()
	file.SetConfigFile(configFile)
	file.SetConfigType(fileType)
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading config file %s: %w", configFile, err)
	}
	file.Set(key, value)

	if err := file.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	viper.Set(key, value)
	return nil
}

// APIURL returns the backend base URL without a trailing slash.
func APIURL() string {
	return strings.TrimRight(viper.GetString(KeyAPIURL), "/")
}

// PollInterval returns how often dashboard views re-fetch their data.
// Non-positive values fall back to DefaultPollInterval.
func PollInterval() time.Duration {
	d := viper.GetDuration(KeyPollInterval)
	if d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// Timeout returns the HTTP client timeout for backend calls.
func Timeout() time.Duration {
	d := viper.GetDuration(KeyTimeout)
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Output returns the default output format (table, json or yaml).
func Output() string {
	if v := viper.GetString(KeyOutput); v != "" {
		return v
	}
	return DefaultOutput
}
