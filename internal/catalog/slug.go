package catalog

import (
	"fmt"
	"strings"
)

// Slugify lowercases a name, replaces whitespace with hyphens and drops
// every other non-alphanumeric character. Consecutive hyphens collapse so
// "Noodles & Pasta" becomes "noodles-pasta".
func Slugify(name string) string {
	lowered := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	var b strings.Builder
	b.Grow(len(lowered))
	lastHyphen := false
	for _, r := range lowered {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' && !lastHyphen && b.Len() > 0:
			b.WriteRune(r)
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// SlugCandidate returns the slug to try on the given attempt of the bounded
// collision loop: the plain slug first, then "-2", "-3" suffixes.
func SlugCandidate(name string, attempt int) string {
	if attempt <= 1 {
		return Slugify(name)
	}
	return fmt.Sprintf("%s-%d", Slugify(name), attempt)
}
