// Package vault is the public surface of the credential store. Every value
// it writes is encrypted under a per-vault master key, every operation is
// audited, and every failure comes back as a *vaulterr.Error.
package vault

import (
	"log/slog"

	"github.com/semmy-space/vlt/internal/audit"
	"github.com/semmy-space/vlt/internal/crypto"
	"github.com/semmy-space/vlt/internal/keystore"
	"github.com/semmy-space/vlt/internal/vaulterr"
)

// Storage is the persistence the orchestrator needs. *storage.FileStore
// satisfies it.
type Storage interface {
	VaultExists(name string) bool
	SetCredential(vaultName, credName string, rec crypto.EncryptedRecord) (created bool, err error)
	GetCredential(vaultName, credName string) (crypto.EncryptedRecord, error)
	DeleteCredential(vaultName, credName string) error
	ListCredentials(vaultName string) ([]string, error)
	DeleteVault(name string) error
	ListVaults() ([]string, error)
}

// Vault ties the key provider, storage and audit trail together.
type Vault struct {
	keys  keystore.Provider
	store Storage
	audit *audit.Logger
	log   *slog.Logger
}

// New creates a Vault. A nil audit logger records nothing and a nil slog
// logger discards diagnostics.
func New(keys keystore.Provider, store Storage, auditLog *audit.Logger, logger *slog.Logger) *Vault {
	if auditLog == nil {
		auditLog = audit.NewDisabled()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Vault{
		keys:  keys,
		store: store,
		audit: auditLog,
		log:   logger,
	}
}

// Set encrypts value and stores it as credName in vaultName. The vault and
// its master key are created on first use.
func (v *Vault) Set(vaultName, credName, value string) error {
	v.log.Debug("set credential", slog.String("op", "set"), slog.String("vault", vaultName), slog.String("credential", credName))

	key, err := v.resolveKey(vaultName)
	if err != nil {
		return v.fail(vaultName, credName, err)
	}
	defer crypto.Wipe(key)

	rec, err := crypto.Encrypt(value, key)
	if err != nil {
		return v.fail(vaultName, credName, err)
	}

	created, err := v.store.SetCredential(vaultName, credName, rec)
	if err != nil {
		return v.fail(vaultName, credName, err)
	}

	if created {
		v.audit.LogVaultCreated(vaultName)
	}
	v.audit.LogCredentialSet(vaultName, credName)
	return nil
}

// Get decrypts and returns one credential value.
//
// A vault with no master key gets one provisioned here too, the same as Set.
func (v *Vault) Get(vaultName, credName string) (string, error) {
	v.log.Debug("get credential", slog.String("op", "get"), slog.String("vault", vaultName), slog.String("credential", credName))

	key, err := v.resolveKey(vaultName)
	if err != nil {
		return "", v.fail(vaultName, credName, err)
	}
	defer crypto.Wipe(key)

	rec, err := v.store.GetCredential(vaultName, credName)
	if err != nil {
		return "", v.fail(vaultName, credName, err)
	}

	value, err := crypto.Decrypt(rec, key)
	if err != nil {
		return "", v.fail(vaultName, credName, err)
	}

	v.audit.LogCredentialGet(vaultName, credName)
	return value, nil
}

// Delete removes one credential. No key is needed.
func (v *Vault) Delete(vaultName, credName string) error {
	v.log.Debug("delete credential", slog.String("op", "delete"), slog.String("vault", vaultName), slog.String("credential", credName))

	if err := v.store.DeleteCredential(vaultName, credName); err != nil {
		return v.fail(vaultName, credName, err)
	}

	v.audit.LogCredentialDeleted(vaultName, credName)
	return nil
}

// List returns the sorted credential names of a vault, never values.
func (v *Vault) List(vaultName string) ([]string, error) {
	v.log.Debug("list credentials", slog.String("op", "list"), slog.String("vault", vaultName))

	names, err := v.store.ListCredentials(vaultName)
	if err != nil {
		return nil, v.fail(vaultName, "", err)
	}

	v.audit.LogCredentialList(vaultName)
	return names, nil
}

// DeleteVault removes the vault file and then its master key. Deleting a
// vault that does not exist succeeds.
func (v *Vault) DeleteVault(vaultName string) error {
	v.log.Debug("delete vault", slog.String("op", "delete-vault"), slog.String("vault", vaultName))

	if err := v.store.DeleteVault(vaultName); err != nil {
		return v.fail(vaultName, "", err)
	}
	if err := v.keys.DeleteMasterKey(vaultName); err != nil {
		return v.fail(vaultName, "", err)
	}

	v.audit.LogVaultDeleted(vaultName)
	v.audit.LogMasterKeyDeleted(vaultName)
	return nil
}

// ListVaults returns the sorted names of all vaults.
func (v *Vault) ListVaults() ([]string, error) {
	v.log.Debug("list vaults", slog.String("op", "list-vaults"))

	names, err := v.store.ListVaults()
	if err != nil {
		return nil, v.fail("*", "", err)
	}

	v.audit.LogVaultList()
	return names, nil
}

// VaultExists reports whether a vault file is present.
func (v *Vault) VaultExists(vaultName string) bool {
	return v.store.VaultExists(vaultName)
}

// resolveKey returns the vault's master key, generating and storing one when
// the provider has none.
func (v *Vault) resolveKey(vaultName string) ([]byte, error) {
	key, err := v.keys.GetMasterKey(vaultName)
	if err == nil {
		return key, nil
	}
	if !vaulterr.HasCode(err, vaulterr.MasterKeyNotFound) {
		return nil, err
	}

	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := v.keys.SetMasterKey(vaultName, key); err != nil {
		crypto.Wipe(key)
		return nil, err
	}

	v.log.Debug("created master key", slog.String("vault", vaultName))
	v.audit.LogMasterKeyCreated(vaultName)
	return key, nil
}

// fail records err in the audit trail and returns it as a *vaulterr.Error.
// Untagged errors can only come from an injected key provider, so they are
// classified as access denials.
func (v *Vault) fail(vaultName, credName string, err error) error {
	vErr := vaulterr.As(err, vaulterr.KeychainAccessDenied)
	if vErr.Code == vaulterr.KeychainAccessDenied {
		v.audit.LogAccessDenied(vaultName, credName, vErr)
	} else {
		v.audit.LogVaultError(vaultName, credName, vErr)
	}

	v.log.Debug("operation failed",
		slog.String("vault", vaultName),
		slog.String("code", string(vErr.Code)),
		slog.Any("error", err))
	return vErr
}
