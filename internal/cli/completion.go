package cli

import (
	"os"

	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/vlt/internal/audit"
	"github.com/semmy-space/vlt/internal/config"
	"github.com/semmy-space/vlt/internal/keystore"
	"github.com/semmy-space/vlt/internal/storage"
)

// CompletionOptions returns the kongplete predictors named in the command
// struct tags.
func CompletionOptions() []kongplete.Option {
	return []kongplete.Option{
		kongplete.WithPredictor("vault", complete.PredictFunc(predictVaults)),
		kongplete.WithPredictor("backend", complete.PredictSet(keystore.Backends...)),
		kongplete.WithPredictor("config-key", complete.PredictSet(config.Keys()...)),
		kongplete.WithPredictor("event", complete.PredictSet(auditEvents()...)),
	}
}

// predictVaults lists vault files directly. Completion must stay quiet, so
// it neither opens the keyring nor writes the audit log.
func predictVaults(complete.Args) []string {
	dir := os.Getenv("VLT_VAULT_DIR")
	if dir == "" {
		path := os.Getenv("VLT_CONFIG")
		if path == "" {
			path = config.ConfigPath()
		}
		cfg, err := config.LoadFrom(path)
		if err != nil {
			return nil
		}
		dir = cfg.ResolvedVaultDir()
	}

	names, err := storage.NewFileStore(dir).ListVaults()
	if err != nil {
		return nil
	}
	return names
}

func auditEvents() []string {
	out := make([]string, len(audit.Events))
	for i, e := range audit.Events {
		out[i] = string(e)
	}
	return out
}
