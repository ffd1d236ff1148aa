package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/semmy-space/vlt/internal/config"
	"github.com/semmy-space/vlt/internal/output"
)

// ConfigGetCmd implements config get command
type ConfigGetCmd struct {
	Key string `arg:"" help:"Config key to get (e.g., vault_dir, keyring_backend)" predictor:"config-key"`
}

// Run executes the get command
func (cmd *ConfigGetCmd) Run(cfg *config.Config, streams *Streams) error {
	value, err := cfg.Get(cmd.Key)
	if err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Unknown config key: %s", cmd.Key),
			ExitCode: output.ExitNotFound,
			Hint:     "Valid keys: " + strings.Join(config.Keys(), ", "),
		}
	}

	fmt.Fprintln(streams.Out, value)
	return nil
}

// ConfigSetCmd implements config set command
type ConfigSetCmd struct {
	Key   string `arg:"" help:"Config key to set" predictor:"config-key"`
	Value string `arg:"" help:"Value to set"`
}

// Run executes the set command
func (cmd *ConfigSetCmd) Run(cfg *config.Config, streams *Streams) error {
	// Validate key exists
	if _, err := cfg.Get(cmd.Key); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Unknown config key: %s", cmd.Key),
			ExitCode: output.ExitUsage,
			Hint:     "Valid keys: " + strings.Join(config.Keys(), ", "),
		}
	}

	if err := config.Validate(cmd.Key, cmd.Value); err != nil {
		return &output.CLIError{
			Message:  err.Error(),
			ExitCode: output.ExitUsage,
		}
	}

	if cmd.Key == "audit" && cmd.Value == "off" {
		fmt.Fprintf(streams.Err, "Note: vault operations will no longer be recorded.\n")
	}

	// Set and save
	if err := cfg.Set(cmd.Key, cmd.Value); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Failed to set config: %v", err),
			ExitCode: output.ExitGeneral,
		}
	}

	fmt.Fprintf(streams.Err, "Set %s = %s\n", cmd.Key, cmd.Value)
	return nil
}

// ConfigUnsetCmd implements config unset command
type ConfigUnsetCmd struct {
	Key string `arg:"" help:"Config key to remove" predictor:"config-key"`
}

// Run executes the unset command
func (cmd *ConfigUnsetCmd) Run(cfg *config.Config, streams *Streams) error {
	// Validate key exists
	if _, err := cfg.Get(cmd.Key); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Unknown config key: %s", cmd.Key),
			ExitCode: output.ExitUsage,
		}
	}

	if err := cfg.Unset(cmd.Key); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Failed to unset config: %v", err),
			ExitCode: output.ExitGeneral,
		}
	}

	fmt.Fprintf(streams.Err, "Unset %s\n", cmd.Key)
	return nil
}

// ConfigListConfigCmd implements config list command
type ConfigListConfigCmd struct{}

// configDefaults describes what an unset key resolves to
func configDefaults() map[string]string {
	return map[string]string{
		"vault_dir":       config.DefaultVaultDir(),
		"audit_log":       config.DefaultAuditLog(),
		"audit":           "on",
		"keyring_backend": "auto",
		"keyring_dir":     config.DefaultKeyringDir(),
		"default_output":  "auto",
	}
}

// Run executes the list command
func (cmd *ConfigListConfigCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	type ConfigItem struct {
		Key     string
		Value   string
		Default string
	}

	defaults := configDefaults()
	keys := config.Keys()
	items := make([]ConfigItem, len(keys))
	for i, key := range keys {
		value, _ := cfg.Get(key)
		items[i] = ConfigItem{Key: key, Value: value, Default: defaults[key]}
	}

	cols := []output.Column{
		{Name: "Key", Key: "Key"},
		{Name: "Value", Key: "Value"},
		{Name: "Default", Key: "Default"},
	}

	return fp.Formatter.PrintList(items, cols)
}

// ConfigPathCmd implements config path command
type ConfigPathCmd struct{}

// Run executes the path command
func (cmd *ConfigPathCmd) Run(cfg *config.Config, streams *Streams) error {
	path := cfg.Path()

	fmt.Fprintln(streams.Out, path)

	// Print existence hint to stderr
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(streams.Err, "(file does not exist yet - will be created on first write)\n")
	} else {
		fmt.Fprintf(streams.Err, "(file exists)\n")
	}

	return nil
}
