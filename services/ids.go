package services

import "fmt"

// FormatDisplayID renders the human-readable complaint identifier, e.g.
// CV-2025-007. The ordinal is zero-padded to three digits and grows naturally
// past 999.
func FormatDisplayID(year int, seq int64) string {
	return fmt.Sprintf("CV-%d-%03d", year, seq)
}
