// Package strings holds small string-slice helpers shared across packages.
package strings

import "strings"

// DedupeLower trims, lowercases, and deduplicates a list while preserving
// first-seen order. Empty entries are dropped. Used for the academic domain
// allow-list, where configuration sources routinely repeat entries.
func DedupeLower(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
