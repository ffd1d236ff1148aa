package cli

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/vlt/internal/config"
	"github.com/semmy-space/vlt/internal/output"
)

// FormatterProvider wraps the formatter interface for Kong binding
type FormatterProvider struct {
	Formatter output.Formatter
	Mode      string // resolved output mode: json, plain or rich
}

// CLI is the root command structure
type CLI struct {
	Globals

	Set         SetCmd         `cmd:"" help:"Store a credential (creates the vault on first use)"`
	Get         GetCmd         `cmd:"" help:"Print a credential value"`
	Delete      DeleteCmd      `cmd:"" aliases:"rm" help:"Delete a credential"`
	List        ListCmd        `cmd:"" aliases:"ls" help:"List credential names in a vault"`
	Vaults      VaultsCmd      `cmd:"" help:"List vaults"`
	Exists      ExistsCmd      `cmd:"" help:"Check whether a vault exists"`
	DeleteVault DeleteVaultCmd `cmd:"" name:"delete-vault" help:"Delete a vault and its master key"`
	Audit       AuditCmd       `cmd:"" help:"Show the audit log"`
	Config      ConfigCmd      `cmd:"" help:"Configuration commands"`
	Version     VersionCmd     `cmd:"" help:"Show version information"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`

	streams   *Streams
	formatter output.Formatter
}

// New creates a CLI bound to the given streams; nil means the process streams.
func New(streams *Streams) *CLI {
	if streams == nil {
		streams = StdStreams()
	}
	return &CLI{streams: streams}
}

// Options returns the kong options shared by main and tests.
func Options(version string) []kong.Option {
	return []kong.Option{
		kong.Name("vlt"),
		kong.Description("Local encrypted credential vaults with master keys in the system keyring"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	}
}

// AfterApply hook runs once flags are parsed, before any command executes.
// It loads config, resolves settings, creates the formatter, and binds
// dependencies.
func (c *CLI) AfterApply(ctx *kong.Context) error {
	if c.streams == nil {
		c.streams = StdStreams()
	}

	cfgPath := c.ConfigFile
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		return output.NewCLIError(output.ExitConfigError, err.Error()).
			WithHint("Fix or remove " + cfgPath)
	}

	logger := newLogger(c.Verbose, c.streams.Err)
	logger.Debug("config loaded", slog.String("path", cfg.Path()))

	mode := c.ResolvedOutput(cfg, c.streams.Out)
	formatter := &FormatterProvider{
		Formatter: output.NewWithOptions(mode, output.Options{
			ResultsOnly: c.ResultsOnly,
			Out:         c.streams.Out,
			Err:         c.streams.Err,
		}),
		Mode: mode,
	}
	c.formatter = formatter.Formatter

	// Bind dependencies to kong context
	ctx.Bind(cfg)
	ctx.Bind(formatter)
	ctx.Bind(&c.Globals)
	ctx.Bind(c.streams)
	ctx.Bind(NewVaultProvider(c.Resolve(cfg), logger))

	return nil
}

// Formatter returns the formatter commands print with, or a plain one when
// AfterApply never ran.
func (c *CLI) Formatter() output.Formatter {
	if c.formatter != nil {
		return c.formatter
	}
	streams := c.streams
	if streams == nil {
		streams = StdStreams()
	}
	mode := "plain"
	if c.Output == "json" {
		mode = "json"
	}
	return output.NewWithOptions(mode, output.Options{Out: streams.Out, Err: streams.Err})
}

// ConfigCmd holds configuration subcommands
type ConfigCmd struct {
	Get   ConfigGetCmd        `cmd:"" help:"Get a configuration value"`
	Set   ConfigSetCmd        `cmd:"" help:"Set a configuration value"`
	Unset ConfigUnsetCmd      `cmd:"" help:"Remove a configuration value"`
	List  ConfigListConfigCmd `cmd:"" name:"list" help:"List all configuration values"`
	Path  ConfigPathCmd       `cmd:"" help:"Show config file path"`
}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context, streams *Streams) error {
	version := ctx.Model.Vars()["version"]
	fmt.Fprintf(streams.Out, "vlt version %s\n", version)
	return nil
}
