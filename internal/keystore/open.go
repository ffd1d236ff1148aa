package keystore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"github.com/adrg/xdg"
	"github.com/cenkalti/backoff/v4"

	"github.com/semmy-space/vlt/internal/vaulterr"
)

const (
	BackendAuto = "auto"

	openRetries      = 3
	openInitialDelay = 100 * time.Millisecond
	openMaxElapsed   = 3 * time.Second
)

// Backends lists the accepted values for Options.Backend.
var Backends = []string{
	BackendAuto,
	string(keyring.KeychainBackend),
	string(keyring.SecretServiceBackend),
	string(keyring.WinCredBackend),
	string(keyring.KWalletBackend),
	string(keyring.KeyCtlBackend),
	string(keyring.PassBackend),
	string(keyring.FileBackend),
}

// Options selects and configures the keyring backend.
type Options struct {
	Backend      string // one of Backends; empty means auto
	FileDir      string // directory for the encrypted-file backend
	FilePassword string // password for the encrypted-file backend; empty prompts on the terminal
}

// Open creates a Provider using a platform-appropriate backend.
// In auto mode it prefers the OS keyring and uses the encrypted-file backend
// on WSL and headless Linux, where no keyring daemon can be relied on.
func Open(opts Options, diag *slog.Logger) (*KeyringProvider, error) {
	if diag == nil {
		diag = slog.New(slog.DiscardHandler)
	}

	backend := opts.Backend
	if backend == "" {
		backend = BackendAuto
	}
	if !slices.Contains(Backends, backend) {
		return nil, fmt.Errorf("unknown keyring backend %q (valid: %s)", backend, strings.Join(Backends, ", "))
	}

	cfg := keyring.Config{
		ServiceName:              ServiceName,
		KeychainTrustApplication: true, // macOS: don't prompt every access
		FileDir:                  opts.FileDir,
		FilePasswordFunc:         keyring.TerminalPrompt,
		LibSecretCollectionName:  ServiceName,
		KWalletAppID:             ServiceName,
		KWalletFolder:            ServiceName,
		WinCredPrefix:            ServiceName,
		PassPrefix:               ServiceName,
	}
	if opts.FilePassword != "" {
		cfg.FilePasswordFunc = keyring.FixedStringPrompt(opts.FilePassword)
	}

	switch {
	case backend != BackendAuto:
		bt := keyring.BackendType(backend)
		if !slices.Contains(keyring.AvailableBackends(), bt) {
			return nil, vaulterr.Newf(vaulterr.KeychainAccessDenied,
				"keyring backend %q is not available on %s", backend, runtime.GOOS)
		}
		cfg.AllowedBackends = []keyring.BackendType{bt}
	case IsWSL() || IsHeadless():
		warnOnce(diag, "detected WSL/headless environment, storing master keys in the encrypted file keyring")
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}

	if slices.Contains(cfg.AllowedBackends, keyring.FileBackend) || cfg.AllowedBackends == nil {
		if cfg.FileDir == "" {
			return nil, fmt.Errorf("no directory configured for the file keyring")
		}
		if err := os.MkdirAll(cfg.FileDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create keyring directory: %w", err)
		}
	}

	policy := backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(openInitialDelay),
			backoff.WithMaxElapsedTime(openMaxElapsed),
		),
		openRetries,
	)

	ring, err := backoff.RetryNotifyWithData(func() (keyring.Keyring, error) {
		return keyring.Open(cfg)
	}, policy, func(err error, next time.Duration) {
		diag.Debug("keyring open failed, retrying",
			slog.String("backend", backend),
			slog.Duration("next", next),
			slog.Any("error", err))
	})
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.KeychainAccessDenied, err, "failed to open keyring")
	}

	return NewKeyringProvider(ring), nil
}

// IsWSL returns true if running under Windows Subsystem for Linux.
func IsWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}

	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// IsHeadless returns true if running in a headless environment (no display server).
// Only applicable on Linux; macOS and Windows are assumed to have GUI.
func IsHeadless() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}

func noticeMarkerPath() string {
	return filepath.Join(xdg.StateHome, "vlt", ".file-keyring-notice")
}

// quietMode returns true if the user has suppressed warnings via VLT_QUIET.
func quietMode() bool {
	return os.Getenv("VLT_QUIET") == "1" || os.Getenv("VLT_QUIET") == "true"
}

// warnOnce logs msg the first time only; a marker file keeps later
// invocations quiet.
func warnOnce(diag *slog.Logger, msg string) {
	marker := noticeMarkerPath()
	if quietMode() {
		return
	}
	if _, err := os.Stat(marker); err == nil {
		return
	}

	diag.Warn(msg)

	if err := os.MkdirAll(filepath.Dir(marker), 0700); err == nil {
		_ = os.WriteFile(marker, []byte("1"), 0600)
	}
}
