package vault

import (
	"errors"
	"os"
	"path/filepath"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semmy-space/vlt/internal/audit"
	"github.com/semmy-space/vlt/internal/crypto"
	"github.com/semmy-space/vlt/internal/keystore"
	"github.com/semmy-space/vlt/internal/storage"
	"github.com/semmy-space/vlt/internal/vaulterr"
)

type testEnv struct {
	vault *Vault
	ring  *keyring.ArrayKeyring
	keys  *keystore.KeyringProvider
	store *storage.FileStore
	audit *audit.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	ring := keyring.NewArrayKeyring(nil)
	keys := keystore.NewKeyringProvider(ring)
	store := storage.NewFileStore(filepath.Join(dir, "vaults"))
	auditLog := audit.New(filepath.Join(dir, "audit.log"), nil)

	return &testEnv{
		vault: New(keys, store, auditLog, nil),
		ring:  ring,
		keys:  keys,
		store: store,
		audit: auditLog,
	}
}

// events returns the audit trail oldest first.
func (e *testEnv) events() []audit.Entry {
	entries := e.audit.ReadLog(0)
	slices.Reverse(entries)
	return entries
}

func eventNames(entries []audit.Entry) []audit.Event {
	out := make([]audit.Event, len(entries))
	for i, e := range entries {
		out[i] = e.Event
	}
	return out
}

func (e *testEnv) hasMasterKey(t *testing.T, vaultName string) bool {
	t.Helper()
	keys, err := e.ring.Keys()
	require.NoError(t, err)
	return slices.Contains(keys, "master_key_"+vaultName)
}

// stubProvider fails every call with err.
type stubProvider struct {
	err error
}

func (p stubProvider) GetMasterKey(string) ([]byte, error) { return nil, p.err }
func (p stubProvider) SetMasterKey(string, []byte) error   { return p.err }
func (p stubProvider) DeleteMasterKey(string) error        { return p.err }

func TestSetGetScenario(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.vault.Set("acme", "github-token", "ghp_123"))

	got, err := env.vault.Get("acme", "github-token")
	require.NoError(t, err)
	assert.Equal(t, "ghp_123", got)

	raw, err := os.ReadFile(filepath.Join(env.store.Dir(), "acme.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "ghp_123")
	assert.Contains(t, string(raw), `"github-token"`)

	auditRaw, err := os.ReadFile(env.audit.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(auditRaw), "ghp_123")
}

func TestSetCreatesVaultAndMasterKey(t *testing.T) {
	env := newTestEnv(t)
	require.False(t, env.vault.VaultExists("acme"))
	require.False(t, env.hasMasterKey(t, "acme"))

	require.NoError(t, env.vault.Set("acme", "a", "1"))

	assert.True(t, env.vault.VaultExists("acme"))
	assert.True(t, env.hasMasterKey(t, "acme"))
	assert.Equal(t,
		[]audit.Event{audit.MasterKeyCreated, audit.VaultCreated, audit.CredentialSet},
		eventNames(env.events()))

	t.Run("second set reuses the key", func(t *testing.T) {
		require.NoError(t, env.vault.Set("acme", "b", "2"))

		events := env.events()
		assert.Equal(t, audit.CredentialSet, events[len(events)-1].Event)
		assert.Len(t, events, 4)
	})
}

func TestConcurrentFirstSetLogsVaultCreatedOnce(t *testing.T) {
	env := newTestEnv(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, env.keys.SetMasterKey("acme", key))

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, env.vault.Set("acme", fmt.Sprintf("cred-%d", i), "v"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, e := range env.events() {
		if e.Event == audit.VaultCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)

	names, err := env.vault.List("acme")
	require.NoError(t, err)
	assert.Len(t, names, writers)
}

func TestSetOverwrites(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.vault.Set("acme", "a", "old"))
	require.NoError(t, env.vault.Set("acme", "a", "new"))

	got, err := env.vault.Get("acme", "a")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestUnicodeRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	values := []string{
		"пароль-密码-🔑",
		"naïve café ✓",
		"",
		"line1\nline2\ttab",
	}

	for i, value := range values {
		name := string(rune('a' + i))
		require.NoError(t, env.vault.Set("intl", name, value))

		got, err := env.vault.Get("intl", name)
		require.NoError(t, err)
		assert.Equal(t, value, got)
	}
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, env.vault.Set("acme", name, "secret-"+name))
	}

	names, err := env.vault.List("acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	last := env.audit.ReadLog(1)[0]
	assert.Equal(t, audit.CredentialList, last.Event)
	assert.Empty(t, last.CredentialName)

	t.Run("unknown vault", func(t *testing.T) {
		_, err := env.vault.List("missing")
		assert.True(t, vaulterr.HasCode(err, vaulterr.VaultNotFound))
	})
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.vault.Set("acme", "keep", "k"))
	require.NoError(t, env.vault.Set("acme", "drop", "d"))

	require.NoError(t, env.vault.Delete("acme", "drop"))

	names, err := env.vault.List("acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, names)

	got, err := env.vault.Get("acme", "keep")
	require.NoError(t, err)
	assert.Equal(t, "k", got)

	t.Run("unknown name", func(t *testing.T) {
		err := env.vault.Delete("acme", "drop")
		require.Error(t, err)
		assert.True(t, vaulterr.HasCode(err, vaulterr.CredentialNotFound))

		last := env.audit.ReadLog(1)[0]
		assert.Equal(t, audit.VaultError, last.Event)
		assert.Equal(t, "CREDENTIAL_NOT_FOUND", last.ErrorCode)
		assert.False(t, last.Success)
	})

	t.Run("needs no master key", func(t *testing.T) {
		require.NoError(t, env.keys.DeleteMasterKey("acme"))
		require.NoError(t, env.vault.Delete("acme", "keep"))
		assert.False(t, env.hasMasterKey(t, "acme"))
	})
}

func TestDeleteVault(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.vault.Set("acme", "a", "1"))
	require.True(t, env.hasMasterKey(t, "acme"))

	require.NoError(t, env.vault.DeleteVault("acme"))

	assert.False(t, env.vault.VaultExists("acme"))
	assert.False(t, env.hasMasterKey(t, "acme"))

	events := env.events()
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t,
		[]audit.Event{audit.VaultDeleted, audit.MasterKeyDeleted},
		eventNames(events[len(events)-2:]))
}

func TestDeleteVaultIdempotent(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.vault.DeleteVault("never-existed"))

	require.NoError(t, env.vault.Set("acme", "a", "1"))
	require.NoError(t, env.vault.DeleteVault("acme"))
	require.NoError(t, env.vault.DeleteVault("acme"))
}

func TestRecreatedVaultGetsNewKey(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.vault.Set("acme", "a", "1"))
	first, err := env.keys.GetMasterKey("acme")
	require.NoError(t, err)

	require.NoError(t, env.vault.DeleteVault("acme"))
	require.NoError(t, env.vault.Set("acme", "a", "2"))

	second, err := env.keys.GetMasterKey("acme")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := env.vault.Get("acme", "a")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestGetProvisionsMasterKey(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.vault.Get("fresh", "anything")
	require.Error(t, err)
	assert.True(t, vaulterr.HasCode(err, vaulterr.VaultNotFound))

	// The lookup still created key material for the vault.
	assert.True(t, env.hasMasterKey(t, "fresh"))
	assert.Equal(t,
		[]audit.Event{audit.MasterKeyCreated, audit.VaultError},
		eventNames(env.events()))
}

func TestGetMissingCredential(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.vault.Set("acme", "a", "1"))

	_, err := env.vault.Get("acme", "b")
	assert.True(t, vaulterr.HasCode(err, vaulterr.CredentialNotFound))
}

func TestGetTamperedRecord(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.vault.Set("acme", "a", "ghp_123"))

	vf, err := env.store.ReadVault("acme")
	require.NoError(t, err)
	rec := vf.Credentials["a"]
	rec.Ciphertext[0] ^= 0x01
	vf.Credentials["a"] = rec
	require.NoError(t, env.store.WriteVault("acme", vf))

	_, err = env.vault.Get("acme", "a")
	require.Error(t, err)
	assert.True(t, vaulterr.HasCode(err, vaulterr.TamperedData))

	last := env.audit.ReadLog(1)[0]
	assert.Equal(t, audit.VaultError, last.Event)
	assert.Equal(t, "TAMPERED_DATA", last.ErrorCode)
	assert.Equal(t, "a", last.CredentialName)
}

func TestGetWithReplacedKey(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.vault.Set("acme", "a", "ghp_123"))

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, env.keys.SetMasterKey("acme", other))

	got, err := env.vault.Get("acme", "a")
	require.Error(t, err)
	assert.Empty(t, got)
	code, ok := vaulterr.CodeOf(err)
	require.True(t, ok)
	assert.Contains(t, []vaulterr.Code{vaulterr.TamperedData, vaulterr.DecryptionFailed}, code)
}

func TestAccessDenied(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "tagged denial", err: vaulterr.New(vaulterr.KeychainAccessDenied, "user canceled")},
		{name: "untagged provider error", err: errors.New("dbus: connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := storage.NewFileStore(filepath.Join(dir, "vaults"))
			auditLog := audit.New(filepath.Join(dir, "audit.log"), nil)
			v := New(stubProvider{err: tt.err}, store, auditLog, nil)

			err := v.Set("acme", "a", "1")
			require.Error(t, err)

			var vErr *vaulterr.Error
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, vaulterr.KeychainAccessDenied, vErr.Code)
			assert.False(t, store.VaultExists("acme"))

			_, err = v.Get("acme", "a")
			assert.True(t, vaulterr.HasCode(err, vaulterr.KeychainAccessDenied))

			err = v.DeleteVault("acme")
			assert.True(t, vaulterr.HasCode(err, vaulterr.KeychainAccessDenied))

			for _, e := range auditLog.ReadLog(0) {
				assert.Equal(t, audit.AccessDenied, e.Event)
				assert.Equal(t, "KEYCHAIN_ACCESS_DENIED", e.ErrorCode)
				assert.False(t, e.Success)
			}
			assert.Len(t, auditLog.ReadLog(0), 3)
		})
	}
}

func TestMasterKeyNotFoundNeverEscapes(t *testing.T) {
	env := newTestEnv(t)

	for _, op := range []func() error{
		func() error { return env.vault.Set("acme", "a", "1") },
		func() error { _, err := env.vault.Get("other", "a"); return err },
	} {
		err := op()
		assert.False(t, vaulterr.HasCode(err, vaulterr.MasterKeyNotFound))
	}

	for _, e := range env.audit.ReadLog(0) {
		assert.NotEqual(t, "MASTER_KEY_NOT_FOUND", e.ErrorCode)
	}
}

func TestListVaults(t *testing.T) {
	env := newTestEnv(t)

	names, err := env.vault.ListVaults()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, env.vault.Set("zeta", "a", "1"))
	require.NoError(t, env.vault.Set("alpha", "a", "1"))

	names, err = env.vault.ListVaults()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)

	last := env.audit.ReadLog(1)[0]
	assert.Equal(t, audit.VaultList, last.Event)
	assert.Equal(t, "*", last.VaultName)
	assert.True(t, last.Success)
}

func TestAuditFailureDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	auditLog := audit.New(filepath.Join(blocker, "audit.log"), nil)
	v := New(keystore.NewKeyringProvider(keyring.NewArrayKeyring(nil)),
		storage.NewFileStore(filepath.Join(dir, "vaults")), auditLog, nil)

	require.NoError(t, v.Set("acme", "a", "1"))
	got, err := v.Get("acme", "a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	assert.Equal(t, audit.Disabled, auditLog.State())
}

func TestNilCollaborators(t *testing.T) {
	v := New(keystore.NewKeyringProvider(keyring.NewArrayKeyring(nil)),
		storage.NewFileStore(t.TempDir()), nil, nil)

	require.NoError(t, v.Set("acme", "a", "1"))
	got, err := v.Get("acme", "a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}
