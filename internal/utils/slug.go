package utils

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Slugify lowercases name, joins words with hyphens and appends the unix
// millisecond timestamp so repeated names stay unique.
func Slugify(name string, now time.Time) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	base := strings.TrimSuffix(b.String(), "-")
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	if base == "" {
		return stamp
	}
	return base + "-" + stamp
}
