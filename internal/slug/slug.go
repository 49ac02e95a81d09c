// Package slug turns titles into URL-safe identifiers.
package slug

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds a slug including any numeric suffix
const MaxLength = 200

// Fallback is used when a title has no letters or digits
const Fallback = "post"

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make lowercases the title, folds accents, drops punctuation and joins
// the remaining words with single hyphens.
//
//	Make("Visa Guide 2024")        // "visa-guide-2024"
//	Make("  Étude  à Paris: FAQ ") // "etude-a-paris-faq"
func Make(title string) string {
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/' || r == '.':
			pendingHyphen = true
		}
	}

	s := b.String()
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	if s == "" {
		return Fallback
	}
	return s
}

// WithSuffix appends "-n" to base, shortening base so the result fits MaxLength
func WithSuffix(base string, n int) string {
	suffix := "-" + strconv.Itoa(n)
	if len(base)+len(suffix) > MaxLength {
		base = strings.TrimRight(base[:MaxLength-len(suffix)], "-")
	}
	return base + suffix
}

// ExistsFunc reports whether a candidate slug is already taken
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Unique returns the first free candidate among base, base-2, base-3, ...
// When maxAttempts candidates are taken it returns base with a random
// suffix, which the caller's unique constraint still guards.
func Unique(ctx context.Context, base string, exists ExistsFunc, maxAttempts int) (string, error) {
	if base == "" {
		base = Fallback
	}
	for n := 1; n <= maxAttempts; n++ {
		candidate := base
		if n > 1 {
			candidate = WithSuffix(base, n)
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return WithToken(base), nil
}

// WithToken appends a random 8-character hex suffix to base, shortening
// base so the result fits MaxLength
func WithToken(base string) string {
	suffix := "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if len(base)+len(suffix) > MaxLength {
		base = strings.TrimRight(base[:MaxLength-len(suffix)], "-")
	}
	return base + suffix
}
