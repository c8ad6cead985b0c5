// Package config loads application configuration from the stack's YAML file
// and VAULTCLEANER_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
)

// DefaultFile is the stack definition read when no --config flag is given.
const DefaultFile = "serverless.yml"

const (
	cleanerKey = "custom." + model.ConfigSection
	toolKey    = "vaultcleaner"
)

// Config holds the application configuration.
type Config struct {
	// Cleaner is nil when neither the YAML section nor the list env vars are present.
	Cleaner *model.CleanupConfig

	Region            string
	Profile           string
	Endpoint          string
	MaxConcurrency    int
	RetryMaxAttempts  int
	RequestsPerSecond float64 // Client-side Backup API throttle; 0 disables it.
	AccessKeyID       string  // Optional dedicated credentials for the cleaner.
	SecretAccessKey   string
	SessionToken      string
	DBPath            string
	ListenAddr        string
	LogLevel          slog.Level
	File              string // Config file actually read; empty if none.
}

// HasHistory returns true when a run history database is configured.
func (c *Config) HasHistory() bool {
	return c.DBPath != ""
}

// Load reads configuration from path (DefaultFile when empty) and the
// environment. A missing default file is not an error; a missing explicit
// file is. Environment variables override file values:
// VAULTCLEANER_REGION, VAULTCLEANER_PROFILE, VAULTCLEANER_ENDPOINT,
// VAULTCLEANER_MAX_CONCURRENCY (0 = unlimited), VAULTCLEANER_RETRY_MAX_ATTEMPTS
// (0 = SDK default), VAULTCLEANER_REQUESTS_PER_SECOND (0 = unthrottled),
// VAULTCLEANER_ACCESS_KEY_ID, VAULTCLEANER_SECRET_ACCESS_KEY,
// VAULTCLEANER_SESSION_TOKEN, VAULTCLEANER_DB_PATH (empty disables history),
// VAULTCLEANER_LISTEN_ADDR (127.0.0.1:8080), VAULTCLEANER_LOG_LEVEL (info),
// and the comma-separated lists VAULTCLEANER_BACKUP_VAULTS and
// VAULTCLEANER_BACKUP_VAULTS_ON_DEPLOY. A .env file in the working directory
// is loaded first; variables already set in the process win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault(toolKey+".listenAddr", "127.0.0.1:8080")
	v.SetDefault(toolKey+".logLevel", "info")
	v.SetDefault(toolKey+".maxConcurrency", 0)
	v.SetDefault(toolKey+".retryMaxAttempts", 0)
	v.SetDefault(toolKey+".requestsPerSecond", 0)

	bindings := map[string]string{
		"region":            "VAULTCLEANER_REGION",
		"profile":           "VAULTCLEANER_PROFILE",
		"endpoint":          "VAULTCLEANER_ENDPOINT",
		"maxConcurrency":    "VAULTCLEANER_MAX_CONCURRENCY",
		"retryMaxAttempts":  "VAULTCLEANER_RETRY_MAX_ATTEMPTS",
		"requestsPerSecond": "VAULTCLEANER_REQUESTS_PER_SECOND",
		"accessKeyId":       "VAULTCLEANER_ACCESS_KEY_ID",
		"secretAccessKey":   "VAULTCLEANER_SECRET_ACCESS_KEY",
		"sessionToken":      "VAULTCLEANER_SESSION_TOKEN",
		"dbPath":            "VAULTCLEANER_DB_PATH",
		"listenAddr":        "VAULTCLEANER_LISTEN_ADDR",
		"logLevel":          "VAULTCLEANER_LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(toolKey+"."+key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	file, err := readFile(v, path)
	if err != nil {
		return nil, err
	}

	level, err := parseLevel(v.GetString(toolKey + ".logLevel"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Cleaner:           loadCleaner(v),
		Region:            v.GetString(toolKey + ".region"),
		Profile:           v.GetString(toolKey + ".profile"),
		Endpoint:          v.GetString(toolKey + ".endpoint"),
		MaxConcurrency:    v.GetInt(toolKey + ".maxConcurrency"),
		RetryMaxAttempts:  v.GetInt(toolKey + ".retryMaxAttempts"),
		RequestsPerSecond: v.GetFloat64(toolKey + ".requestsPerSecond"),
		AccessKeyID:       v.GetString(toolKey + ".accessKeyId"),
		SecretAccessKey:   v.GetString(toolKey + ".secretAccessKey"),
		SessionToken:      v.GetString(toolKey + ".sessionToken"),
		DBPath:            v.GetString(toolKey + ".dbPath"),
		ListenAddr:        v.GetString(toolKey + ".listenAddr"),
		LogLevel:          level,
		File:              file,
	}

	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("maxConcurrency must be >= 0, got %d", cfg.MaxConcurrency)
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requestsPerSecond must be >= 0, got %g", cfg.RequestsPerSecond)
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, fmt.Errorf("accessKeyId and secretAccessKey must be set together")
	}
	if cfg.RetryMaxAttempts < 0 {
		return nil, fmt.Errorf("retryMaxAttempts must be >= 0, got %d", cfg.RetryMaxAttempts)
	}

	return cfg, nil
}

// readFile loads the YAML file into v and returns the path that was read.
func readFile(v *viper.Viper, path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return "", nil
		}
		return "", fmt.Errorf("config file %s: %w", path, err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config %s: %w", path, err)
	}
	return path, nil
}

// loadCleaner builds the cleaner section. Environment lists replace the
// corresponding YAML list and also count as supplying the section.
func loadCleaner(v *viper.Viper) *model.CleanupConfig {
	present := v.IsSet(cleanerKey)

	remove := v.GetStringSlice(cleanerKey + ".backupVaults")
	deploy := v.GetStringSlice(cleanerKey + ".backupVaultsToCleanOnDeploy")

	if list, ok := envList("VAULTCLEANER_BACKUP_VAULTS"); ok {
		remove = list
		present = true
	}
	if list, ok := envList("VAULTCLEANER_BACKUP_VAULTS_ON_DEPLOY"); ok {
		deploy = list
		present = true
	}

	if !present {
		return nil
	}

	return &model.CleanupConfig{
		BackupVaults:                model.VaultNames(remove),
		BackupVaultsToCleanOnDeploy: model.VaultNames(deploy),
	}
}

// envList splits a comma-separated environment variable, dropping blanks.
func envList(key string) ([]string, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, false
	}
	list := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	return list, true
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logLevel has invalid value %q: %w", s, err)
	}
	return level, nil
}
