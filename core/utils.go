package core

import "strings"

// CleanString strips the whitespace around s. Pass true to also fold the
// result to lower case, as identifier fields compared case-insensitively do.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}
