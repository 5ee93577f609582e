package main

import (
	"strings"

	"github.com/ChunHungLiu/pigz"
)

// stripKnownSuffix removes whichever of pigz.KnownSuffixes fn ends with,
// reporting whether one was found. Longer suffixes are tried first so
// ".zip" isn't shadowed by a hypothetical shorter alias.
func stripKnownSuffix(fn string) (string, bool) {
	best := ""
	for _, sfx := range pigz.KnownSuffixes {
		if strings.HasSuffix(fn, sfx) && len(sfx) > len(best) {
			best = sfx
		}
	}
	if best == "" {
		return fn, false
	}
	return fn[:len(fn)-len(best)], true
}

// outputSuffix returns the suffix to append when compressing, preferring
// an explicit -s override over the format's default.
func outputSuffix(customSuffix string, f pigz.Format) string {
	if customSuffix != "" {
		if !strings.HasPrefix(customSuffix, ".") {
			return "." + customSuffix
		}
		return customSuffix
	}
	return f.DefaultSuffix()
}
