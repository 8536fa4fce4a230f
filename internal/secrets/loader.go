package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when a source has neither a file nor a value.
var ErrNotConfigured = errors.New("not configured")

// Source describes where a credential comes from. File takes precedence over
// Value so that a mounted secret overrides an inline default.
type Source struct {
	// Name appears in error messages, e.g. "razorpay key secret".
	Name  string
	Value string
	File  string
}

// Load returns the trimmed secret from src.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		if secret := strings.TrimSpace(string(data)); secret != "" {
			return secret, nil
		}
		return "", fmt.Errorf("%s file %q is empty", name, file)
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}
	return "", fmt.Errorf("%s is %w", name, ErrNotConfigured)
}

// Optional is Load for credentials whose absence switches a component into
// a fallback mode. It reports ok=false instead of ErrNotConfigured; a file
// that cannot be read is still an error.
func Optional(src Source) (secret string, ok bool, err error) {
	secret, err = Load(src)
	if errors.Is(err, ErrNotConfigured) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return secret, true, nil
}
