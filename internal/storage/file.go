// Package storage persists encrypted credential records, one JSON document
// per vault, in a single directory.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/semmy-space/vlt/internal/crypto"
	"github.com/semmy-space/vlt/internal/vaulterr"
)

const (
	// FormatVersion is written to every new vault file.
	FormatVersion = "1.0"

	vaultExt = ".json"
	lockExt  = ".lock"
	tempGlob = ".tmp-*"

	filePerm os.FileMode = 0600
	dirPerm  os.FileMode = 0700

	lockTimeout    = 10 * time.Second
	lockRetryDelay = 50 * time.Millisecond
)

// VaultFile is the on-disk document for one vault. It never holds plaintext.
type VaultFile struct {
	Version     string                            `json:"version"`
	Created     time.Time                         `json:"created"`
	Updated     time.Time                         `json:"updated"`
	Credentials map[string]crypto.EncryptedRecord `json:"credentials"`
}

// FileStore implements vault CRUD on top of a directory of JSON files.
// Writes replace the whole file through a temp file and rename, so readers
// never see a partial document.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir: dir,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Dir returns the directory holding the vault files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) vaultPath(name string) string {
	return filepath.Join(s.dir, name+vaultExt)
}

func (s *FileStore) lockPath(name string) string {
	return s.vaultPath(name) + lockExt
}

// VaultExists reports whether a vault file is present.
func (s *FileStore) VaultExists(name string) bool {
	info, err := os.Stat(s.vaultPath(name))
	return err == nil && info.Mode().IsRegular()
}

// CreateVault writes an empty vault document unless one already exists.
func (s *FileStore) CreateVault(name string) error {
	if s.VaultExists(name) {
		return nil
	}

	now := s.now()
	return s.write(name, &VaultFile{
		Version:     FormatVersion,
		Created:     now,
		Updated:     now,
		Credentials: map[string]crypto.EncryptedRecord{},
	})
}

// ReadVault loads and validates a vault document.
func (s *FileStore) ReadVault(name string) (*VaultFile, error) {
	data, err := os.ReadFile(s.vaultPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, vaulterr.Newf(vaulterr.VaultNotFound, "vault %q not found", name)
		}
		return nil, vaulterr.Wrap(vaulterr.VaultReadFailed, err, fmt.Sprintf("failed to read vault %q", name))
	}

	var vf VaultFile
	if err := json.Unmarshal(data, &vf); err != nil {
		return nil, vaulterr.Wrap(vaulterr.VaultReadFailed, err, fmt.Sprintf("failed to parse vault %q", name))
	}

	if vf.Version == "" || vf.Credentials == nil {
		return nil, vaulterr.Newf(vaulterr.InvalidVaultFile,
			"vault %q is missing required fields (version, credentials)", name)
	}

	return &vf, nil
}

// WriteVault replaces the vault document, stamping Updated.
func (s *FileStore) WriteVault(name string, vf *VaultFile) error {
	vf.Updated = s.now()
	return s.write(name, vf)
}

func (s *FileStore) write(name string, vf *VaultFile) error {
	data, err := json.MarshalIndent(vf, "", "  ")
	if err != nil {
		return vaulterr.Wrap(vaulterr.VaultWriteFailed, err, fmt.Sprintf("failed to serialize vault %q", name))
	}

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return vaulterr.Wrap(vaulterr.VaultWriteFailed, err, "failed to create vault directory")
	}

	if err := writeFileAtomic(s.vaultPath(name), data, filePerm); err != nil {
		return vaulterr.Wrap(vaulterr.VaultWriteFailed, err, fmt.Sprintf("failed to write vault %q", name))
	}

	return nil
}

// SetCredential inserts or overwrites one record, creating the vault if
// needed. created reports whether this call created the vault file.
func (s *FileStore) SetCredential(vaultName, credName string, rec crypto.EncryptedRecord) (created bool, err error) {
	err = s.withLock(vaultName, func() error {
		if !s.VaultExists(vaultName) {
			if err := s.CreateVault(vaultName); err != nil {
				return err
			}
			created = true
		}

		vf, err := s.ReadVault(vaultName)
		if err != nil {
			return err
		}

		vf.Credentials[credName] = rec
		return s.WriteVault(vaultName, vf)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// GetCredential returns one record.
func (s *FileStore) GetCredential(vaultName, credName string) (crypto.EncryptedRecord, error) {
	vf, err := s.ReadVault(vaultName)
	if err != nil {
		return crypto.EncryptedRecord{}, err
	}

	rec, ok := vf.Credentials[credName]
	if !ok {
		return crypto.EncryptedRecord{}, vaulterr.Newf(vaulterr.CredentialNotFound,
			"credential %q not found in vault %q", credName, vaultName)
	}

	return rec, nil
}

// DeleteCredential removes one record, leaving its siblings untouched.
func (s *FileStore) DeleteCredential(vaultName, credName string) error {
	return s.withLock(vaultName, func() error {
		vf, err := s.ReadVault(vaultName)
		if err != nil {
			return err
		}

		if _, ok := vf.Credentials[credName]; !ok {
			return vaulterr.Newf(vaulterr.CredentialNotFound,
				"credential %q not found in vault %q", credName, vaultName)
		}

		delete(vf.Credentials, credName)
		return s.WriteVault(vaultName, vf)
	})
}

// ListCredentials returns the sorted credential names of a vault.
func (s *FileStore) ListCredentials(vaultName string) ([]string, error) {
	vf, err := s.ReadVault(vaultName)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(vf.Credentials))
	for name := range vf.Credentials {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// DeleteVault removes the vault file under the vault lock. The lock file
// stays so that waiting writers keep contending on the same inode. Deleting a
// vault that does not exist succeeds.
func (s *FileStore) DeleteVault(name string) error {
	if _, err := os.Stat(s.dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return s.withLock(name, func() error {
		if err := os.Remove(s.vaultPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return vaulterr.Wrap(vaulterr.VaultWriteFailed, err, fmt.Sprintf("failed to delete vault %q", name))
		}
		return nil
	})
}

// ListVaults returns the sorted names of all vault files in the directory.
func (s *FileStore) ListVaults() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, vaulterr.Wrap(vaulterr.VaultReadFailed, err, "failed to read vault directory")
	}

	names := []string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		fileName := entry.Name()
		if strings.HasPrefix(fileName, ".") || !strings.HasSuffix(fileName, vaultExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(fileName, vaultExt))
	}
	sort.Strings(names)

	return names, nil
}

// withLock serializes read-modify-write cycles on one vault across goroutines
// and processes.
func (s *FileStore) withLock(vaultName string, fn func() error) error {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return vaulterr.Wrap(vaulterr.VaultWriteFailed, err, "failed to create vault directory")
	}

	lock := flock.New(s.lockPath(vaultName), flock.SetPermissions(filePerm))
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return vaulterr.Wrap(vaulterr.VaultWriteFailed, err, fmt.Sprintf("failed to lock vault %q", vaultName))
	}
	if !locked {
		return vaulterr.Newf(vaulterr.VaultWriteFailed, "failed to lock vault %q: timeout", vaultName)
	}
	defer lock.Unlock()

	return fn()
}

// writeFileAtomic writes data to a temp file in the target directory, syncs
// it, and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), tempGlob)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
