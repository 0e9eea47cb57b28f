// Package strings provides string helpers for record mapping and SQL args
package strings

import (
	std "strings"

	"golang.org/x/text/unicode/norm"
)

// SplitSet splits s on sep, trims each token and returns the distinct non-empty
// tokens in first-seen order. Tokens equal to any of exclude are dropped
func SplitSet(s, sep string, exclude ...string) []string {
	if std.TrimSpace(s) == "" {
		return nil
	}
	seen := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		seen[e] = struct{}{}
	}
	var out []string
	for _, tok := range std.Split(s, sep) {
		tok = std.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// NFC returns s in Unicode normalization form C
func NFC(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// SQLNullPtr returns nil if ps is nil or points to a blank string, else the dereferenced string
func SQLNullPtr(ps *string) any {
	if ps == nil || std.TrimSpace(*ps) == "" {
		return nil
	}
	return *ps
}

// Deref returns "" if ps is nil, else *ps.
func Deref(ps *string) string {
	if ps == nil {
		return ""
	}
	return *ps
}

// Truncate shortens s to at most n bytes, appending an ellipsis when cut.
// It never splits a UTF-8 sequence
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8Start(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
