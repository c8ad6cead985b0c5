package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
)

// allConfigKeys lists every VAULTCLEANER_ env var that Load() reads.
var allConfigKeys = []string{
	"VAULTCLEANER_REGION",
	"VAULTCLEANER_PROFILE",
	"VAULTCLEANER_ENDPOINT",
	"VAULTCLEANER_MAX_CONCURRENCY",
	"VAULTCLEANER_RETRY_MAX_ATTEMPTS",
	"VAULTCLEANER_REQUESTS_PER_SECOND",
	"VAULTCLEANER_ACCESS_KEY_ID",
	"VAULTCLEANER_SECRET_ACCESS_KEY",
	"VAULTCLEANER_SESSION_TOKEN",
	"VAULTCLEANER_DB_PATH",
	"VAULTCLEANER_LISTEN_ADDR",
	"VAULTCLEANER_LOG_LEVEL",
	"VAULTCLEANER_BACKUP_VAULTS",
	"VAULTCLEANER_BACKUP_VAULTS_ON_DEPLOY",
}

// isolateConfigEnv saves and unsets all VAULTCLEANER_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original values.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

// writeConfig writes a YAML file into a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serverless.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const stackYAML = `
service: orders
provider:
  name: aws
  region: eu-west-1
custom:
  serverless-backup-vault-cleaner:
    backupVaults:
      - orders-vault
      - orders-archive
    backupVaultsToCleanOnDeploy:
      - orders-vault-old
vaultcleaner:
  region: eu-west-1
  maxConcurrency: 4
  requestsPerSecond: 7.5
  dbPath: /tmp/history.db
  logLevel: debug
`

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, stackYAML)

	cfg, err := Load(path)

	require.NoError(t, err)
	require.NotNil(t, cfg.Cleaner)
	assert.Equal(t, []model.VaultName{"orders-vault", "orders-archive"}, cfg.Cleaner.BackupVaults)
	assert.Equal(t, []model.VaultName{"orders-vault-old"}, cfg.Cleaner.BackupVaultsToCleanOnDeploy)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.InDelta(t, 7.5, cfg.RequestsPerSecond, 0)
	assert.Equal(t, "/tmp/history.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, path, cfg.File)
	assert.True(t, cfg.HasHistory())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, "service: orders\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Nil(t, cfg.Cleaner)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 0, cfg.MaxConcurrency)
	assert.Equal(t, 0, cfg.RetryMaxAttempts)
	assert.False(t, cfg.HasHistory())
}

func TestLoad_MissingSectionIsConfigErrorAtSelection(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, "custom:\n  other-plugin:\n    enabled: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Cleaner.VaultsFor(model.TriggerRemove)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestLoad_EmptyListsAreValid(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, "custom:\n  serverless-backup-vault-cleaner:\n    backupVaults: []\n")

	cfg, err := Load(path)

	require.NoError(t, err)
	require.NotNil(t, cfg.Cleaner)
	vaults, err := cfg.Cleaner.VaultsFor(model.TriggerDeploy)
	require.NoError(t, err)
	assert.Empty(t, vaults)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, stackYAML)
	t.Setenv("VAULTCLEANER_REGION", "us-east-2")
	t.Setenv("VAULTCLEANER_MAX_CONCURRENCY", "16")
	t.Setenv("VAULTCLEANER_BACKUP_VAULTS", " a , b,,c ")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "us-east-2", cfg.Region)
	assert.Equal(t, 16, cfg.MaxConcurrency)
	assert.Equal(t, []model.VaultName{"a", "b", "c"}, cfg.Cleaner.BackupVaults)
	assert.Equal(t, []model.VaultName{"orders-vault-old"}, cfg.Cleaner.BackupVaultsToCleanOnDeploy)
}

func TestLoad_EnvListWithoutFile(t *testing.T) {
	isolateConfigEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("VAULTCLEANER_BACKUP_VAULTS_ON_DEPLOY", "legacy")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Empty(t, cfg.File)
	require.NotNil(t, cfg.Cleaner)
	assert.Equal(t, []model.VaultName{"legacy"}, cfg.Cleaner.BackupVaultsToCleanOnDeploy)
	assert.Empty(t, cfg.Cleaner.BackupVaults)
}

func TestLoad_DotEnvFile(t *testing.T) {
	isolateConfigEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("VAULTCLEANER_REGION=ap-south-1\nVAULTCLEANER_BACKUP_VAULTS=from-dotenv\n"), 0o600))
	t.Setenv("VAULTCLEANER_BACKUP_VAULTS", "from-process")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "ap-south-1", cfg.Region)
	assert.Equal(t, []model.VaultName{"from-process"}, cfg.Cleaner.BackupVaults)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolateConfigEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))

	require.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"negative concurrency", "VAULTCLEANER_MAX_CONCURRENCY", "-1"},
		{"negative rate", "VAULTCLEANER_REQUESTS_PER_SECOND", "-2"},
		{"negative attempts", "VAULTCLEANER_RETRY_MAX_ATTEMPTS", "-3"},
		{"bad log level", "VAULTCLEANER_LOG_LEVEL", "loud"},
		{"half credentials", "VAULTCLEANER_ACCESS_KEY_ID", "AKIAEXAMPLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			path := writeConfig(t, stackYAML)
			t.Setenv(tt.key, tt.val)

			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
