package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under every XDG base directory.
const AppName = "vlt"

// ConfigDir returns the XDG-compliant config directory for vlt
// Typically ~/.config/vlt/ on Linux
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ConfigPath returns the full path to the config file
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json5")
}

// DataDir returns the XDG-compliant data directory for vlt
// Typically ~/.local/share/vlt/ on Linux
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns the XDG-compliant state directory for vlt
// Typically ~/.local/state/vlt/ on Linux
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultVaultDir is where vault files live unless vault_dir is set.
func DefaultVaultDir() string {
	return filepath.Join(DataDir(), "vaults")
}

// DefaultAuditLog is the audit trail path unless audit_log is set.
func DefaultAuditLog() string {
	return filepath.Join(StateDir(), "audit.log")
}

// DefaultKeyringDir holds the encrypted-file keyring unless keyring_dir is set.
func DefaultKeyringDir() string {
	return filepath.Join(DataDir(), "keyring")
}
