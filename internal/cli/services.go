package cli

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/semmy-space/vlt/internal/audit"
	"github.com/semmy-space/vlt/internal/config"
	"github.com/semmy-space/vlt/internal/keystore"
	"github.com/semmy-space/vlt/internal/output"
	"github.com/semmy-space/vlt/internal/storage"
	"github.com/semmy-space/vlt/internal/vault"
	"github.com/semmy-space/vlt/internal/vaulterr"
)

// VaultProvider lazily creates and caches the vault and its collaborators,
// so commands that never touch a vault never open the keyring.
type VaultProvider struct {
	settings Settings
	log      *slog.Logger

	auditOnce sync.Once
	auditLog  *audit.Logger

	vaultOnce sync.Once
	vault     *vault.Vault
	vaultErr  error
}

// NewVaultProvider creates a VaultProvider with the given settings.
func NewVaultProvider(settings Settings, logger *slog.Logger) *VaultProvider {
	return &VaultProvider{settings: settings, log: logger}
}

// Settings returns the resolved settings the provider was built with.
func (vp *VaultProvider) Settings() Settings {
	return vp.settings
}

// Audit returns the audit logger, creating it on first call.
func (vp *VaultProvider) Audit() *audit.Logger {
	vp.auditOnce.Do(func() {
		if !vp.settings.AuditEnabled {
			vp.auditLog = audit.NewDisabled()
			return
		}
		vp.auditLog = audit.New(vp.settings.AuditLog, vp.log)
	})
	return vp.auditLog
}

// Vault returns the vault, opening the keyring on first call.
func (vp *VaultProvider) Vault() (*vault.Vault, error) {
	vp.vaultOnce.Do(func() {
		if err := config.Validate("keyring_backend", vp.settings.Keyring.Backend); err != nil {
			vp.vaultErr = &output.CLIError{
				ExitCode: output.ExitConfigError,
				Message:  err.Error(),
			}
			return
		}

		keys, err := keystore.Open(vp.settings.Keyring, vp.log)
		if err != nil {
			if vaulterr.HasCode(err, vaulterr.KeychainAccessDenied) {
				vp.vaultErr = vaultError(err)
				return
			}
			vp.vaultErr = &output.CLIError{
				ExitCode: output.ExitConfigError,
				Message:  fmt.Sprintf("Failed to initialize key store: %v", err),
			}
			return
		}

		vp.vault = vault.New(keys, storage.NewFileStore(vp.settings.VaultDir), vp.Audit(), vp.log)
	})
	return vp.vault, vp.vaultErr
}
