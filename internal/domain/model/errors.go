package model

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every configuration error. It is the only
// error a cleanup run returns to its caller.
var ErrConfiguration = errors.New("configuration error")

// ErrVaultNotFound is returned by backends that can tell a missing vault apart
// from other describe failures. The existence filter does not rely on it.
var ErrVaultNotFound = errors.New("backup vault not found")

// ConfigError describes invalid or missing cleaner configuration.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "serverless-backup-vault-cleaner: " + e.Msg
}

// Is makes errors.Is(err, ErrConfiguration) true for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// EnumerationError reports a failed recovery point listing. Partial pages are discarded.
type EnumerationError struct {
	Vault VaultName
	Page  int
	Err   error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("listing recovery points for %s (page %d): %v", e.Vault, e.Page, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// DeletionError reports that at least one recovery point in a vault could not be deleted.
// Err is the first failure observed.
type DeletionError struct {
	Vault  VaultName
	Failed int
	Total  int
	Err    error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("deleting recovery points in %s (%d of %d failed): %v", e.Vault, e.Failed, e.Total, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }
