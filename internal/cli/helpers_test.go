package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semmy-space/vlt/internal/audit"
	"github.com/semmy-space/vlt/internal/config"
	"github.com/semmy-space/vlt/internal/output"
	"github.com/semmy-space/vlt/internal/vaulterr"
)

func TestValidateName(t *testing.T) {
	valid := []string{"acme", "github-token", "AWS_KEY_2", strings.Repeat("a", 128)}
	for _, name := range valid {
		assert.NoError(t, validateName("vault", name), name)
	}

	invalid := []string{"", "../x", "a/b", "a.b", "with space", "ключ", strings.Repeat("a", 129)}
	for _, name := range invalid {
		err := validateName("vault", name)
		var cliErr *output.CLIError
		require.ErrorAs(t, err, &cliErr, name)
		assert.Equal(t, output.ExitUsage, cliErr.ExitCode)
		assert.NotEmpty(t, cliErr.Hint)
	}
}

func TestVaultErrorMapping(t *testing.T) {
	tests := []struct {
		code     vaulterr.Code
		exitCode int
		hasHint  bool
	}{
		{vaulterr.VaultNotFound, output.ExitNotFound, true},
		{vaulterr.CredentialNotFound, output.ExitNotFound, true},
		{vaulterr.KeychainAccessDenied, output.ExitForbidden, true},
		{vaulterr.TamperedData, output.ExitDataError, true},
		{vaulterr.DecryptionFailed, output.ExitDataError, false},
		{vaulterr.InvalidVaultFile, output.ExitDataError, false},
		{vaulterr.InvalidKeyLength, output.ExitDataError, false},
		{vaulterr.VaultReadFailed, output.ExitIOError, false},
		{vaulterr.VaultWriteFailed, output.ExitIOError, false},
		{vaulterr.KeyGenerationFailed, output.ExitGeneral, false},
		{vaulterr.EncryptionFailed, output.ExitGeneral, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := vaultError(vaulterr.New(tt.code, "boom"))

			var cliErr *output.CLIError
			require.ErrorAs(t, err, &cliErr)
			assert.Equal(t, tt.exitCode, cliErr.ExitCode)
			assert.Contains(t, cliErr.Message, string(tt.code))
			assert.Equal(t, tt.hasHint, cliErr.Hint != "")
		})
	}

	t.Run("untagged", func(t *testing.T) {
		var cliErr *output.CLIError
		require.ErrorAs(t, vaultError(errors.New("odd")), &cliErr)
		assert.Equal(t, output.ExitGeneral, cliErr.ExitCode)
		assert.Equal(t, "odd", cliErr.Message)
	})
}

func TestParseDate(t *testing.T) {
	t.Run("date start of day", func(t *testing.T) {
		got, err := parseDate("2026-03-01", false)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("date end of day", func(t *testing.T) {
		got, err := parseDate("2026-03-01", true)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC), got)
	})

	t.Run("rfc3339", func(t *testing.T) {
		got, err := parseDate("2026-03-01T10:30:00Z", true)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := parseDate("yesterday", false)
		assert.Error(t, err)
	})
}

func TestFilterEntries(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []audit.Entry{
		{Timestamp: base.Add(3 * time.Hour), Event: audit.CredentialGet, VaultName: "acme", Success: true},
		{Timestamp: base.Add(2 * time.Hour), Event: audit.VaultError, VaultName: "acme", ErrorCode: "TAMPERED_DATA"},
		{Timestamp: base.Add(time.Hour), Event: audit.CredentialSet, VaultName: "home", Success: true},
		{Timestamp: base, Event: audit.CredentialGet, VaultName: "home", Success: true},
	}

	tests := []struct {
		name   string
		filter auditFilter
		limit  int
		want   int
	}{
		{name: "no filter", want: 4},
		{name: "limit", limit: 2, want: 2},
		{name: "vault", filter: auditFilter{vault: "home"}, want: 2},
		{name: "event", filter: auditFilter{event: audit.CredentialGet}, want: 2},
		{name: "failures", filter: auditFilter{failures: true}, want: 1},
		{name: "since", filter: auditFilter{since: base.Add(90 * time.Minute)}, want: 2},
		{name: "until", filter: auditFilter{until: base.Add(time.Hour)}, want: 2},
		{name: "combined with limit", filter: auditFilter{event: audit.CredentialGet}, limit: 1, want: 1},
		{name: "nothing matches", filter: auditFilter{vault: "other"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterEntries(entries, tt.filter, tt.limit)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
		})
	}

	t.Run("keeps order", func(t *testing.T) {
		got := filterEntries(entries, auditFilter{vault: "home"}, 0)
		require.Len(t, got, 2)
		assert.Equal(t, audit.CredentialSet, got[0].Event)
	})
}

func TestReadValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"secret\n", "secret"},
		{"secret\r\n", "secret"},
		{"secret", "secret"},
		{"secret\r", "secret\r"},
		{"secret\r\r\n", "secret\r"},
		{"two\nlines\n", "two\nlines"},
		{"", ""},
	}

	for _, tt := range tests {
		got, err := readValue(strings.NewReader(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	t.Run("too large", func(t *testing.T) {
		_, err := readValue(strings.NewReader(strings.Repeat("x", maxValueSize+1)))
		assert.Error(t, err)
	})
}

func TestConfirm(t *testing.T) {
	for answer, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		var stderr bytes.Buffer
		streams := &Streams{In: strings.NewReader(answer), Err: &stderr}
		assert.Equal(t, want, confirm(streams, "Really?"), "answer %q", answer)
		assert.Equal(t, "Really? [y/N]: ", stderr.String())
	}
}

func TestResolvePrecedence(t *testing.T) {
	cfg := &config.Config{
		VaultDir:       "/from/config",
		Audit:          "on",
		KeyringBackend: "file",
		KeyringDir:     "/config/keyring",
	}

	t.Run("config over defaults", func(t *testing.T) {
		s := (&Globals{}).Resolve(cfg)
		assert.Equal(t, "/from/config", s.VaultDir)
		assert.Equal(t, config.DefaultAuditLog(), s.AuditLog)
		assert.True(t, s.AuditEnabled)
		assert.Equal(t, "file", s.Keyring.Backend)
		assert.Equal(t, "/config/keyring", s.Keyring.FileDir)
	})

	t.Run("flags over config", func(t *testing.T) {
		g := &Globals{
			VaultDir:        "/from/flag",
			AuditLog:        "/flag/audit.log",
			NoAudit:         true,
			KeyringBackend:  "pass",
			KeyringDir:      "/flag/keyring",
			KeyringPassword: "pw",
		}
		s := g.Resolve(cfg)
		assert.Equal(t, "/from/flag", s.VaultDir)
		assert.Equal(t, "/flag/audit.log", s.AuditLog)
		assert.False(t, s.AuditEnabled)
		assert.Equal(t, "pass", s.Keyring.Backend)
		assert.Equal(t, "/flag/keyring", s.Keyring.FileDir)
		assert.Equal(t, "pw", s.Keyring.FilePassword)
	})

	t.Run("audit off in config", func(t *testing.T) {
		s := (&Globals{}).Resolve(&config.Config{Audit: "off"})
		assert.False(t, s.AuditEnabled)
	})
}

func TestResolvedOutput(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, "json", (&Globals{Output: "json"}).ResolvedOutput(&config.Config{DefaultOutput: "rich"}, &buf))
	assert.Equal(t, "rich", (&Globals{}).ResolvedOutput(&config.Config{DefaultOutput: "rich"}, &buf))
	assert.Equal(t, "plain", (&Globals{}).ResolvedOutput(&config.Config{}, &buf))
	assert.Equal(t, "plain", (&Globals{Output: "auto"}).ResolvedOutput(&config.Config{DefaultOutput: "json"}, &buf))
}
