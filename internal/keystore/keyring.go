// Package keystore holds per-vault master keys outside the vault files, in a
// platform secret store.
package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"

	"github.com/semmy-space/vlt/internal/crypto"
	"github.com/semmy-space/vlt/internal/vaulterr"
)

// ServiceName is the service identifier for keyring storage
const ServiceName = "vlt"

// Provider stores one 256-bit master key per vault name.
//
// GetMasterKey fails with vaulterr.MasterKeyNotFound when no key exists yet
// and with vaulterr.KeychainAccessDenied when the platform store refuses
// access. DeleteMasterKey succeeds when the key is already absent. Callers
// own the slice GetMasterKey returns and may wipe it.
type Provider interface {
	GetMasterKey(vaultName string) ([]byte, error)
	SetMasterKey(vaultName string, key []byte) error
	DeleteMasterKey(vaultName string) error
}

// KeyringProvider implements Provider on top of any keyring backend.
type KeyringProvider struct {
	ring keyring.Keyring
}

// NewKeyringProvider wraps an opened keyring.
func NewKeyringProvider(ring keyring.Keyring) *KeyringProvider {
	return &KeyringProvider{ring: ring}
}

func itemKey(vaultName string) string {
	return fmt.Sprintf("master_key_%s", vaultName)
}

// GetMasterKey retrieves the master key for a vault.
func (p *KeyringProvider) GetMasterKey(vaultName string) ([]byte, error) {
	item, err := p.ring.Get(itemKey(vaultName))
	if err != nil {
		if isNotFound(err) {
			return nil, vaulterr.Newf(vaulterr.MasterKeyNotFound, "no master key for vault %q", vaultName)
		}
		return nil, vaulterr.Wrap(vaulterr.KeychainAccessDenied, err,
			fmt.Sprintf("keyring get failed for vault %q", vaultName))
	}

	key, err := base64.StdEncoding.DecodeString(string(item.Data))
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.InvalidKeyLength, err,
			fmt.Sprintf("master key for vault %q is not valid base64", vaultName))
	}
	if !crypto.IsValidKey(key) {
		return nil, vaulterr.Newf(vaulterr.InvalidKeyLength,
			"master key for vault %q must be %d bytes, got %d", vaultName, crypto.KeySize, len(key))
	}

	return key, nil
}

// SetMasterKey stores the master key for a vault, replacing any previous one.
func (p *KeyringProvider) SetMasterKey(vaultName string, key []byte) error {
	if !crypto.IsValidKey(key) {
		return vaulterr.Newf(vaulterr.InvalidKeyLength,
			"master key must be %d bytes, got %d", crypto.KeySize, len(key))
	}

	item := keyring.Item{
		Key:         itemKey(vaultName),
		Data:        []byte(base64.StdEncoding.EncodeToString(key)),
		Label:       fmt.Sprintf("vlt master key (%s)", vaultName),
		Description: "vlt vault master key",
	}
	if err := p.ring.Set(item); err != nil {
		return vaulterr.Wrap(vaulterr.KeychainAccessDenied, err,
			fmt.Sprintf("keyring set failed for vault %q", vaultName))
	}
	return nil
}

// DeleteMasterKey removes the master key for a vault.
func (p *KeyringProvider) DeleteMasterKey(vaultName string) error {
	if err := p.ring.Remove(itemKey(vaultName)); err != nil {
		if isNotFound(err) {
			return nil
		}
		return vaulterr.Wrap(vaulterr.KeychainAccessDenied, err,
			fmt.Sprintf("keyring delete failed for vault %q", vaultName))
	}
	return nil
}

// isNotFound covers keyring.ErrKeyNotFound and the file backend, which
// reports a missing item as a missing file.
func isNotFound(err error) bool {
	return errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, os.ErrNotExist)
}
