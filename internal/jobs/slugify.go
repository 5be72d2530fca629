// SPDX-License-Identifier: MIT

package jobs

import (
	"strings"
	"unicode"

	unorm "golang.org/x/text/unicode/norm"
)

// Slugify converts a brand name into a lowercase machine id prefix.
// Example: "ESPN+" -> "espn", "Sportsnet Now" -> "sportsnet-now".
func Slugify(name string) string {
	if name == "" {
		return "channel"
	}

	// NFC first so combining sequences compare and strip predictably
	s := unorm.NFC.String(strings.ToLower(strings.TrimSpace(name)))

	var result strings.Builder
	lastWasDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			lastWasDash = false
		} else if !lastWasDash && result.Len() > 0 {
			result.WriteRune('-')
			lastWasDash = true
		}
	}

	slug := strings.Trim(result.String(), "-")
	if len(slug) > 50 {
		slug = strings.TrimRight(slug[:50], "-")
	}
	if slug == "" {
		return "channel"
	}
	return slug
}
