package cli

import (
	"fmt"

	"github.com/semmy-space/vlt/internal/output"
)

// VaultsCmd lists vault names
type VaultsCmd struct{}

// Run executes the vaults command
func (cmd *VaultsCmd) Run(vp *VaultProvider, fp *FormatterProvider) error {
	v, err := vp.Vault()
	if err != nil {
		return err
	}
	names, err := v.ListVaults()
	if err != nil {
		return vaultError(err)
	}

	return fp.Formatter.PrintList(names, []output.Column{{Name: "VAULT", Key: "Vault"}})
}

// ExistsCmd reports whether a vault exists. The exit status is non-zero when
// it does not.
type ExistsCmd struct {
	Vault string `arg:"" help:"Vault name" predictor:"vault"`
}

// Run executes the exists command
func (cmd *ExistsCmd) Run(vp *VaultProvider, fp *FormatterProvider) error {
	if err := validateName("vault", cmd.Vault); err != nil {
		return err
	}

	v, err := vp.Vault()
	if err != nil {
		return err
	}

	exists := v.VaultExists(cmd.Vault)
	if fp.Mode == "json" {
		if err := fp.Formatter.Print(map[string]any{"vault": cmd.Vault, "exists": exists}); err != nil {
			return err
		}
	} else if err := fp.Formatter.Print(exists); err != nil {
		return err
	}

	if !exists {
		return output.NewCLIError(output.ExitNotFound, fmt.Sprintf("Vault %q does not exist", cmd.Vault))
	}
	return nil
}

// DeleteVaultCmd deletes a vault and its master key
type DeleteVaultCmd struct {
	Vault string `arg:"" help:"Vault name" predictor:"vault"`
}

// Run executes the delete-vault command
func (cmd *DeleteVaultCmd) Run(vp *VaultProvider, globals *Globals, streams *Streams) error {
	if err := validateName("vault", cmd.Vault); err != nil {
		return err
	}

	// Check confirmation requirement (unless --force)
	if !globals.Force {
		if globals.NoInput {
			return output.NewCLIError(output.ExitUsage, "Deleting a vault requires --force when prompts are disabled")
		}
		question := fmt.Sprintf("Delete vault %q and its master key? Its credentials cannot be recovered.", cmd.Vault)
		if !confirm(streams, question) {
			return output.NewCLIError(output.ExitGeneral, "Aborted")
		}
	}

	v, err := vp.Vault()
	if err != nil {
		return err
	}
	if err := v.DeleteVault(cmd.Vault); err != nil {
		return vaultError(err)
	}

	fmt.Fprintf(streams.Err, "Deleted vault %s\n", cmd.Vault)
	return nil
}
