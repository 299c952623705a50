package main

// SanitizeInterfaceName maps an interface name to a token that is safe as a
// filesystem path component. Every byte outside [A-Za-z0-9._-] is replaced
// with '_'. Path separators are never passed through, so the token cannot
// escape the status directory.
func SanitizeInterfaceName(name string) string {
	b := []byte(name)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}
