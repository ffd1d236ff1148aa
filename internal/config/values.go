package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/semmy-space/vlt/internal/keystore"
)

// Output modes accepted by default_output and --output.
var OutputModes = []string{"auto", "json", "plain", "rich"}

// allowedValues restricts keys that take one of a fixed set of values.
// Keys not listed accept any string.
var allowedValues = map[string][]string{
	"audit":           {"on", "off"},
	"keyring_backend": keystore.Backends,
	"default_output":  OutputModes,
}

// ValidValues returns the sorted accepted values for key, or nil when the
// key is free-form.
func ValidValues(key string) []string {
	values, ok := allowedValues[key]
	if !ok {
		return nil
	}
	out := slices.Clone(values)
	sort.Strings(out)
	return out
}

// Validate checks value against the accepted values for key.
// Empty values are always accepted and mean "use the default".
func Validate(key, value string) error {
	values, ok := allowedValues[key]
	if !ok || value == "" {
		return nil
	}
	if !slices.Contains(values, value) {
		return fmt.Errorf("invalid value %q for %s (valid: %s)", value, key, strings.Join(ValidValues(key), ", "))
	}
	return nil
}
