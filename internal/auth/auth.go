// Package auth guards trade endpoints with an optional shared API key.
package auth

import (
	"crypto/subtle"
	"os"
)

// EnvAPIKey is the environment variable holding the expected key.
const EnvAPIKey = "LEDGER_API_KEY"

// Keyring validates caller-supplied API keys. When no key is configured,
// every request is allowed; production deployments set the key.
type Keyring struct {
	key string
}

// New creates a keyring expecting the given key. Empty disables the check.
func New(key string) *Keyring {
	return &Keyring{key: key}
}

// FromEnv creates a keyring from the LEDGER_API_KEY environment variable.
func FromEnv() *Keyring {
	return New(os.Getenv(EnvAPIKey))
}

// Enabled reports whether a key is configured at all.
func (k *Keyring) Enabled() bool {
	return k != nil && k.key != ""
}

// Validate checks the candidate key in constant time.
func (k *Keyring) Validate(candidate string) bool {
	if !k.Enabled() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(k.key)) == 1
}
