package model

// CleanupConfig is the cleaner's configuration section. A nil *CleanupConfig
// means the section was not supplied at all, which is a configuration error.
// Either list may be empty.
type CleanupConfig struct {
	BackupVaults                []VaultName // Cleaned by the remove trigger.
	BackupVaultsToCleanOnDeploy []VaultName // Cleaned by the deploy trigger.
}

// ConfigSection is the name of the cleaner's configuration section.
const ConfigSection = "serverless-backup-vault-cleaner"

// VaultsFor selects the vault list for a trigger. The lists never mix.
func (c *CleanupConfig) VaultsFor(trigger Trigger) ([]VaultName, error) {
	if c == nil {
		return nil, &ConfigError{Msg: "missing configuration section custom." + ConfigSection}
	}
	switch trigger {
	case TriggerDeploy:
		return UniqueVaults(c.BackupVaultsToCleanOnDeploy), nil
	case TriggerRemove:
		return UniqueVaults(c.BackupVaults), nil
	default:
		return nil, &ConfigError{Msg: "unknown trigger " + string(trigger)}
	}
}
