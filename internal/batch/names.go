package batch

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename folds an order display name into something safe for a
// Content-Disposition filename: NFKD-decomposed, combining marks dropped,
// and everything outside letters, digits, "-", "_" and space replaced
// with "_".
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from decomposition
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
