package cli

import (
	"fmt"

	"github.com/semmy-space/vlt/internal/output"
)

// SetCmd stores a credential
type SetCmd struct {
	Vault string  `arg:"" help:"Vault name" predictor:"vault"`
	Name  string  `arg:"" help:"Credential name"`
	Value *string `arg:"" optional:"" help:"Credential value (prompted without echo when omitted)"`
	Stdin bool    `help:"Read the value from stdin"`
}

// Run executes the set command
func (cmd *SetCmd) Run(vp *VaultProvider, globals *Globals, streams *Streams) error {
	if err := validateName("vault", cmd.Vault); err != nil {
		return err
	}
	if err := validateName("credential", cmd.Name); err != nil {
		return err
	}

	var value string
	switch {
	case cmd.Stdin && cmd.Value != nil:
		return output.NewCLIError(output.ExitUsage, "Give the value as an argument or with --stdin, not both")
	case cmd.Stdin:
		v, err := readValue(streams.In)
		if err != nil {
			return output.NewCLIError(output.ExitUsage, err.Error())
		}
		value = v
	case cmd.Value != nil:
		value = *cmd.Value
	default:
		if globals.NoInput {
			return output.NewCLIError(output.ExitUsage, "No value given").
				WithHint("Pass the value as an argument or pipe it with --stdin")
		}
		v, err := readSecret(streams, fmt.Sprintf("Value for %s/%s: ", cmd.Vault, cmd.Name))
		if err != nil {
			return err
		}
		value = v
	}

	v, err := vp.Vault()
	if err != nil {
		return err
	}
	if err := v.Set(cmd.Vault, cmd.Name, value); err != nil {
		return vaultError(err)
	}

	fmt.Fprintf(streams.Err, "Stored %s/%s\n", cmd.Vault, cmd.Name)
	return nil
}

// GetCmd prints a credential value
type GetCmd struct {
	Vault string  `arg:"" help:"Vault name" predictor:"vault"`
	Name  string  `arg:"" help:"Credential name"`
}

// credentialValue is the JSON shape of get
type credentialValue struct {
	Vault string `json:"vault"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Run executes the get command
func (cmd *GetCmd) Run(vp *VaultProvider, fp *FormatterProvider, streams *Streams) error {
	if err := validateName("vault", cmd.Vault); err != nil {
		return err
	}
	if err := validateName("credential", cmd.Name); err != nil {
		return err
	}

	v, err := vp.Vault()
	if err != nil {
		return err
	}
	value, err := v.Get(cmd.Vault, cmd.Name)
	if err != nil {
		return vaultError(err)
	}

	if fp.Mode == "json" {
		return fp.Formatter.Print(credentialValue{Vault: cmd.Vault, Name: cmd.Name, Value: value})
	}

	// Raw value so it can be captured with $(vlt get ...)
	fmt.Fprintln(streams.Out, value)
	return nil
}

// DeleteCmd deletes a credential
type DeleteCmd struct {
	Vault string  `arg:"" help:"Vault name" predictor:"vault"`
	Name  string  `arg:"" help:"Credential name"`
}

// Run executes the delete command
func (cmd *DeleteCmd) Run(vp *VaultProvider, streams *Streams) error {
	if err := validateName("vault", cmd.Vault); err != nil {
		return err
	}
	if err := validateName("credential", cmd.Name); err != nil {
		return err
	}

	v, err := vp.Vault()
	if err != nil {
		return err
	}
	if err := v.Delete(cmd.Vault, cmd.Name); err != nil {
		return vaultError(err)
	}

	fmt.Fprintf(streams.Err, "Deleted %s/%s\n", cmd.Vault, cmd.Name)
	return nil
}

// ListCmd lists credential names
type ListCmd struct {
	Vault string `arg:"" help:"Vault name" predictor:"vault"`
}

// Run executes the list command
func (cmd *ListCmd) Run(vp *VaultProvider, fp *FormatterProvider) error {
	if err := validateName("vault", cmd.Vault); err != nil {
		return err
	}

	v, err := vp.Vault()
	if err != nil {
		return err
	}
	names, err := v.List(cmd.Vault)
	if err != nil {
		return vaultError(err)
	}

	return fp.Formatter.PrintList(names, []output.Column{{Name: "NAME", Key: "Name"}})
}
