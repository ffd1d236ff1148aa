package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Config holds the CLI configuration
type Config struct {
	VaultDir       string `json:"vault_dir,omitempty"`
	AuditLog       string `json:"audit_log,omitempty"`
	Audit          string `json:"audit,omitempty"`
	KeyringBackend string `json:"keyring_backend,omitempty"`
	KeyringDir     string `json:"keyring_dir,omitempty"`
	DefaultOutput  string `json:"default_output,omitempty"`

	path string
}

// Load reads config from XDG path, returns defaults if file doesn't exist
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path. A missing file yields an empty Config
// that Save will create at path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{path: path}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.path = path

	for _, key := range Keys() {
		value, _ := cfg.Get(key)
		if err := Validate(key, value); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	return &cfg, nil
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	if c.path == "" {
		return ConfigPath()
	}
	return c.path
}

// Save writes the config back to its path
func (c *Config) Save() error {
	path := c.Path()

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON (not JSON5 for writing - JSON is valid JSON5)
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Keys returns every config key in declaration order
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := jsonName(t.Field(i)); name != "" {
			keys = append(keys, name)
		}
	}
	return keys
}

func jsonName(field reflect.StructField) string {
	if !field.IsExported() {
		return ""
	}
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	return name
}

func (c *Config) field(key string) (reflect.Value, error) {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		if name := jsonName(t.Field(i)); name != "" && name == key {
			return v.Field(i), nil
		}
	}

	return reflect.Value{}, fmt.Errorf("unknown config key: %s", key)
}

// Get retrieves a config value by key name
func (c *Config) Get(key string) (string, error) {
	f, err := c.field(key)
	if err != nil {
		return "", err
	}
	return f.String(), nil
}

// Set sets a config value by key name and saves
func (c *Config) Set(key, value string) error {
	f, err := c.field(key)
	if err != nil {
		return err
	}
	if err := Validate(key, value); err != nil {
		return err
	}
	f.SetString(value)
	return c.Save()
}

// Unset sets a config value to its zero value and saves
func (c *Config) Unset(key string) error {
	f, err := c.field(key)
	if err != nil {
		return err
	}
	f.SetString("")
	return c.Save()
}

// ResolvedVaultDir returns vault_dir or the XDG default
func (c *Config) ResolvedVaultDir() string {
	if c.VaultDir != "" {
		return c.VaultDir
	}
	return DefaultVaultDir()
}

// ResolvedAuditLog returns audit_log or the XDG default
func (c *Config) ResolvedAuditLog() string {
	if c.AuditLog != "" {
		return c.AuditLog
	}
	return DefaultAuditLog()
}

// ResolvedKeyringDir returns keyring_dir or the XDG default
func (c *Config) ResolvedKeyringDir() string {
	if c.KeyringDir != "" {
		return c.KeyringDir
	}
	return DefaultKeyringDir()
}

// AuditEnabled reports whether audit logging is on. It is on unless set to "off".
func (c *Config) AuditEnabled() bool {
	return c.Audit != "off"
}
