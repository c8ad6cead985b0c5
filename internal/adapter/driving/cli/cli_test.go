package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/vaultcleaner/internal/adapter/driven/awsbackup"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/port/driven"
)

// fakeBackup serves each vault's points in one page.
type fakeBackup struct {
	mu       sync.Mutex
	points   map[model.VaultName][]string
	failARN  string
	deleted  []string
	describe int
}

func (f *fakeBackup) DescribeVault(_ context.Context, vault model.VaultName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describe++
	if _, ok := f.points[vault]; !ok {
		return model.ErrVaultNotFound
	}
	return nil
}

func (f *fakeBackup) ListRecoveryPoints(_ context.Context, vault model.VaultName, _ string) (model.RecoveryPointPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := model.RecoveryPointPage{}
	for _, arn := range f.points[vault] {
		page.Items = append(page.Items, model.RecoveryPoint{Vault: vault, ARN: arn})
	}
	return page, nil
}

func (f *fakeBackup) DeleteRecoveryPoint(_ context.Context, _ model.VaultName, arn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if arn == f.failARN {
		return errors.New("access denied")
	}
	f.deleted = append(f.deleted, arn)
	return nil
}

func newFakeBackup() *fakeBackup {
	return &fakeBackup{points: map[model.VaultName][]string{
		"b1": {"arn:b1:1", "arn:b1:2"},
		"b2": {"arn:b2:1"},
	}}
}

// isolateEnv unsets VAULTCLEANER_ variables, moves into an empty directory and
// restores the default logger when the test ends.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, "VAULTCLEANER_") {
			continue
		}
		orig := os.Getenv(key)
		t.Cleanup(func() { os.Setenv(key, orig) })
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func writeStack(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serverless.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// execute runs the CLI against fake and returns the exit code, stdout and stderr.
func execute(t *testing.T, fake *fakeBackup, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.newBackupClient = func(context.Context, awsbackup.Options) (driven.BackupClient, error) {
		return fake, nil
	}
	code := run(a, args)
	return code, stdout.String(), stderr.String()
}

const removeStack = `
custom:
  serverless-backup-vault-cleaner:
    backupVaults: [b1, gone, b2]
    backupVaultsToCleanOnDeploy: [b2]
`

func TestHook_Remove(t *testing.T) {
	isolateEnv(t)
	fake := newFakeBackup()
	path := writeStack(t, removeStack)

	code, stdout, stderr := execute(t, fake, "--config", path, "hook", model.HookBeforeRemove)

	assert.Equal(t, 0, code, stderr)
	assert.ElementsMatch(t, []string{"arn:b1:1", "arn:b1:2", "arn:b2:1"}, fake.deleted)
	assert.Contains(t, stdout, "succeeded")
	assert.Contains(t, stdout, "skipped")
	assert.Contains(t, stdout, "2 succeeded, 1 skipped, 0 failed, 3 recovery points deleted")
	assert.Contains(t, stderr, "serverless-backup-vault-cleaner initialized")
	assert.Contains(t, stderr, "Backup vault gone not found or insufficient permissions, skipping")
}

func TestHook_Deploy(t *testing.T) {
	isolateEnv(t)
	fake := newFakeBackup()
	path := writeStack(t, removeStack)

	code, _, stderr := execute(t, fake, "--config", path, "hook", model.HookBeforeDeploy)

	assert.Equal(t, 0, code, stderr)
	assert.Equal(t, []string{"arn:b2:1"}, fake.deleted)
}

func TestHook_FailedVaultExitCode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"lenient by default", nil, 0},
		{"strict", []string{"--strict"}, exitFailedVaults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			fake := newFakeBackup()
			fake.failARN = "arn:b1:2"
			path := writeStack(t, removeStack)

			args := append([]string{"--config", path, "hook", model.HookBeforeRemove}, tt.args...)
			code, stdout, stderr := execute(t, fake, args...)

			assert.Equal(t, tt.wantCode, code, stderr)
			assert.Contains(t, stdout, "failed")
			assert.Contains(t, fake.deleted, "arn:b1:1")
			assert.Contains(t, fake.deleted, "arn:b2:1")
			if tt.wantCode != 0 {
				assert.Contains(t, stderr, "1 of 3 backup vault(s) failed")
			}
		})
	}
}

func TestHook_UnknownHook(t *testing.T) {
	isolateEnv(t)
	fake := newFakeBackup()
	path := writeStack(t, removeStack)

	code, _, stderr := execute(t, fake, "--config", path, "hook", "after:deploy:deploy")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown hook")
	assert.Zero(t, fake.describe)
}

func TestHook_MissingSection(t *testing.T) {
	isolateEnv(t)
	fake := newFakeBackup()
	path := writeStack(t, "service: orders\n")

	code, _, stderr := execute(t, fake, "--config", path, "hook", model.HookBeforeRemove)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "serverless-backup-vault-cleaner: ")
	assert.Zero(t, fake.describe)
}

func TestHook_EmptyList(t *testing.T) {
	isolateEnv(t)
	fake := newFakeBackup()
	path := writeStack(t, "custom:\n  serverless-backup-vault-cleaner:\n    backupVaults: []\n")

	code, stdout, _ := execute(t, fake, "--config", path, "hook", model.HookBeforeRemove)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "No backup vaults configured for remove")
	assert.Zero(t, fake.describe)
}

func TestClean_DryRun(t *testing.T) {
	isolateEnv(t)
	fake := newFakeBackup()
	path := writeStack(t, removeStack)

	code, stdout, stderr := execute(t, fake, "--config", path, "clean", "remove", "--dry-run")

	assert.Equal(t, 0, code, stderr)
	assert.Empty(t, fake.deleted)
	assert.Contains(t, stdout, "skip")
	assert.Contains(t, stdout, "Dry run: 3 recovery points would be deleted")
}

func TestClean_ByTrigger(t *testing.T) {
	isolateEnv(t)
	fake := newFakeBackup()
	path := writeStack(t, removeStack)

	code, _, stderr := execute(t, fake, "--config", path, "clean", "deploy")

	assert.Equal(t, 0, code, stderr)
	assert.Equal(t, []string{"arn:b2:1"}, fake.deleted)
}

func TestClean_UnknownTrigger(t *testing.T) {
	isolateEnv(t)
	path := writeStack(t, removeStack)

	code, _, stderr := execute(t, newFakeBackup(), "--config", path, "clean", "destroy")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown trigger")
}

func TestHistory_Disabled(t *testing.T) {
	isolateEnv(t)
	path := writeStack(t, removeStack)

	code, _, stderr := execute(t, newFakeBackup(), "--config", path, "history")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "run history is disabled")
}

func TestHistory_ListsRecordedRuns(t *testing.T) {
	isolateEnv(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	path := writeStack(t, removeStack+"vaultcleaner:\n  dbPath: "+dbPath+"\n")

	code, _, stderr := execute(t, newFakeBackup(), "--config", path, "hook", model.HookBeforeRemove)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = execute(t, newFakeBackup(), "--config", path, "hook", model.HookBeforeDeploy)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := execute(t, newFakeBackup(), "--config", path, "history", "-o", "json")
	require.Equal(t, 0, code, stderr)

	var runs []runView
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "deploy", runs[0].Trigger)
	assert.Equal(t, "remove", runs[1].Trigger)
	assert.Equal(t, 3, runs[1].Deleted)
	require.Len(t, runs[1].Outcomes, 3)
	assert.Equal(t, "gone", runs[1].Outcomes[1].Vault)

	code, stdout, _ = execute(t, newFakeBackup(), "--config", path, "history", "--limit", "1", "-o", "yaml")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "trigger: deploy")
	assert.NotContains(t, stdout, "trigger: remove")

	code, stdout, _ = execute(t, newFakeBackup(), "--config", path, "history")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "remove")
	assert.Contains(t, stdout, "deploy")
}

func TestHistory_InvalidOutput(t *testing.T) {
	isolateEnv(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	path := writeStack(t, "vaultcleaner:\n  dbPath: "+dbPath+"\n")

	code, _, stderr := execute(t, newFakeBackup(), "--config", path, "history", "-o", "xml")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid --output")
}

func TestLogFlags(t *testing.T) {
	isolateEnv(t)
	path := writeStack(t, removeStack)

	code, _, stderr := execute(t, newFakeBackup(), "--config", path, "--log-format", "json", "clean", "remove", "--dry-run")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, `"msg":"serverless-backup-vault-cleaner initialized"`)

	code, _, stderr = execute(t, newFakeBackup(), "--config", path, "--log-format", "xml", "clean", "remove")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid --log-format")

	code, _, stderr = execute(t, newFakeBackup(), "--config", path, "--log-level", "loud", "clean", "remove")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid --log-level")
}

func TestDefaultStackFile(t *testing.T) {
	isolateEnv(t)
	require.NoError(t, os.WriteFile("serverless.yml", []byte(removeStack), 0o600))
	fake := newFakeBackup()

	code, _, stderr := execute(t, fake, "hook", model.HookBeforeRemove)

	assert.Equal(t, 0, code, stderr)
	assert.Len(t, fake.deleted, 3)
}
