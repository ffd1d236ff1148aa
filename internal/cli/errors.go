package cli

import (
	"fmt"
	"regexp"

	"github.com/semmy-space/vlt/internal/output"
	"github.com/semmy-space/vlt/internal/vaulterr"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// validateName rejects vault and credential names that could escape the
// vault directory or confuse the audit log.
func validateName(kind, name string) error {
	if namePattern.MatchString(name) {
		return nil
	}
	return output.NewCLIError(output.ExitUsage, fmt.Sprintf("Invalid %s name: %q", kind, name)).
		WithHint("Names use letters, digits, '-' and '_' (at most 128 characters)")
}

// vaultError maps a vault failure to an exit code and hint.
func vaultError(err error) error {
	code, ok := vaulterr.CodeOf(err)
	if !ok {
		return &output.CLIError{ExitCode: output.ExitGeneral, Message: err.Error()}
	}

	cliErr := &output.CLIError{Message: fmt.Sprintf("%v [%s]", err, code)}

	switch code {
	case vaulterr.VaultNotFound:
		cliErr.ExitCode = output.ExitNotFound
		cliErr.Hint = "List vaults with: vlt vaults"
	case vaulterr.CredentialNotFound:
		cliErr.ExitCode = output.ExitNotFound
		cliErr.Hint = "List credentials with: vlt list <vault>"
	case vaulterr.KeychainAccessDenied:
		cliErr.ExitCode = output.ExitForbidden
		cliErr.Hint = "Unlock the system keyring, or use the file keyring: vlt config set keyring_backend file"
	case vaulterr.TamperedData:
		cliErr.ExitCode = output.ExitDataError
		cliErr.Hint = "The vault file or its master key was changed outside vlt"
	case vaulterr.DecryptionFailed, vaulterr.InvalidVaultFile, vaulterr.InvalidKeyLength:
		cliErr.ExitCode = output.ExitDataError
	case vaulterr.VaultReadFailed, vaulterr.VaultWriteFailed:
		cliErr.ExitCode = output.ExitIOError
	default:
		cliErr.ExitCode = output.ExitGeneral
	}

	return cliErr
}
