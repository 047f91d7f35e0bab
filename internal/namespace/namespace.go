// Package namespace maps trading identities to filesystem-safe storage names.
package namespace

// For resolves an identity to its storage namespace. Each identity maps to
// exactly one namespace, which names both its ledger directory and its lock
// file. Colons, spaces and path separators are not portable (Windows rejects
// colons outright), so every rune outside [A-Za-z0-9._-] becomes an
// underscore.
func For(identity string) string {
	if identity == "" {
		return "default"
	}

	out := make([]rune, 0, len(identity))
	for _, r := range identity {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == '.' || r == '_' || r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
