package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/semmy-space/vlt/internal/config"
	"github.com/semmy-space/vlt/internal/keystore"
)

// Globals holds global flags available to all commands
type Globals struct {
	ConfigFile      string `name:"config" help:"Config file path" type:"path" env:"VLT_CONFIG" placeholder:"PATH"`
	Output          string `help:"Output format" default:"" enum:"json,plain,rich,auto," short:"o" env:"VLT_OUTPUT"`
	Verbose         bool   `help:"Debug diagnostics on stderr" short:"v" env:"VLT_VERBOSE"`
	ResultsOnly     bool   `help:"Strip JSON envelope, return data array only" env:"VLT_RESULTS_ONLY"`
	NoInput         bool   `help:"Disable interactive prompts (fail instead)" env:"VLT_NO_INPUT"`
	Force           bool   `help:"Skip confirmation prompts for destructive operations" short:"f" env:"VLT_FORCE"`
	VaultDir        string `help:"Directory holding vault files" type:"path" env:"VLT_VAULT_DIR" placeholder:"DIR"`
	AuditLog        string `help:"Audit log file" type:"path" env:"VLT_AUDIT_LOG" placeholder:"PATH"`
	NoAudit         bool   `help:"Do not write the audit log" env:"VLT_NO_AUDIT"`
	KeyringBackend  string `help:"Master key store backend" env:"VLT_KEYRING_BACKEND" predictor:"backend" placeholder:"BACKEND"`
	KeyringDir      string `help:"Directory for the encrypted-file keyring" type:"path" env:"VLT_KEYRING_DIR" placeholder:"DIR"`
	KeyringPassword string `help:"Password for the encrypted-file keyring" env:"VLT_KEYRING_PASSWORD" hidden:""`
}

// Streams are the process streams commands read from and write to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the real process streams.
func StdStreams() *Streams {
	return &Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Settings is the fully resolved runtime configuration.
type Settings struct {
	VaultDir     string
	AuditLog     string
	AuditEnabled bool
	Keyring      keystore.Options
}

// ResolvedOutput returns the effective output mode: flag or env, then
// default_output from the config file, then "auto".
// "auto" detects TTY: if stdout is TTY -> rich, else -> plain
func (g *Globals) ResolvedOutput(cfg *config.Config, out io.Writer) string {
	mode := g.Output
	if mode == "" {
		mode = cfg.DefaultOutput
	}
	if mode != "" && mode != "auto" {
		return mode
	}

	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "rich"
	}

	return "plain"
}

// Resolve merges flags and environment over the config file and defaults.
func (g *Globals) Resolve(cfg *config.Config) Settings {
	s := Settings{
		VaultDir:     cfg.ResolvedVaultDir(),
		AuditLog:     cfg.ResolvedAuditLog(),
		AuditEnabled: cfg.AuditEnabled() && !g.NoAudit,
		Keyring: keystore.Options{
			Backend:      cfg.KeyringBackend,
			FileDir:      cfg.ResolvedKeyringDir(),
			FilePassword: g.KeyringPassword,
		},
	}

	if g.VaultDir != "" {
		s.VaultDir = g.VaultDir
	}
	if g.AuditLog != "" {
		s.AuditLog = g.AuditLog
	}
	if g.KeyringBackend != "" {
		s.Keyring.Backend = g.KeyringBackend
	}
	if g.KeyringDir != "" {
		s.Keyring.FileDir = g.KeyringDir
	}

	return s
}

// newLogger builds the diagnostics logger: warnings only, or everything with
// --verbose.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
