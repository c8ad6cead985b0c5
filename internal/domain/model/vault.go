// Package model holds the vault cleaner domain types.
package model

// VaultName identifies a backup vault. It is treated as an opaque string.
type VaultName string

// RecoveryPoint is a single retained backup inside a vault.
type RecoveryPoint struct {
	Vault VaultName
	ARN   string // Opaque reference; the only attribute the cleaner inspects.
}

// RecoveryPointPage is one page returned by a recovery point listing call.
// An empty NextToken marks the last page.
type RecoveryPointPage struct {
	Items     []RecoveryPoint
	NextToken string
}

// Existence is the named result of a vault existence check.
type Existence struct {
	Status ExistenceStatus
	Reason string // Set when Status is ExistenceUnavailable.
}

// ExistenceStatus represents whether a vault is reachable by the caller.
type ExistenceStatus string

const (
	ExistenceConfirmed   ExistenceStatus = "confirmed"
	ExistenceUnavailable ExistenceStatus = "unavailable"
)

// Exists reports whether the vault passed the check.
func (e Existence) Exists() bool {
	return e.Status == ExistenceConfirmed
}

// SkipReasonUnavailable is recorded for vaults that fail the existence check.
// It covers missing vaults and any other describe failure alike.
const SkipReasonUnavailable = "not found or insufficient permissions"

// UniqueVaults returns names in input order with duplicates removed.
func UniqueVaults(names []VaultName) []VaultName {
	seen := make(map[VaultName]struct{}, len(names))
	out := make([]VaultName, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// VaultNames converts plain strings into VaultName values.
func VaultNames(names []string) []VaultName {
	out := make([]VaultName, 0, len(names))
	for _, n := range names {
		out = append(out, VaultName(n))
	}
	return out
}
