// Package slug converts editor-typed titles into URL-safe identifiers.
// Normalization is total: any input, including empty or all-symbol strings,
// yields a (possibly empty) canonical slug without error.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// MinLength is the shortest slug accepted for saving.
	MinLength = 3
	// MaxLength is the longest slug ever produced or accepted.
	MaxLength = 80
)

// Normalize produces the canonical slug for an input string:
// trim, lowercase, NFD decomposition with combining marks stripped,
// runs of non [a-z0-9] become a single hyphen, hyphen runs collapse,
// leading/trailing hyphens are trimmed, result truncated to MaxLength.
func Normalize(input string) string {
	return NormalizeMax(input, MaxLength)
}

// NormalizeMax is Normalize with a caller-chosen maximum length.
func NormalizeMax(input string, max int) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = stripMarks(norm.NFD.String(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	out := b.String()
	if max > 0 && len(out) > max {
		out = strings.TrimRight(out[:max], "-")
	}
	return out
}

func stripMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Result carries the normalized slug and its validity flags.
type Result struct {
	Slug     string `json:"slug"`
	Empty    bool   `json:"empty"`
	TooShort bool   `json:"tooShort"`
	Valid    bool   `json:"valid"`
}

// Check normalizes the input and derives its validity against the
// length rules. Exactly one of Empty, TooShort, Valid is true.
func Check(input string) Result {
	s := Normalize(input)
	switch {
	case s == "":
		return Result{Slug: s, Empty: true}
	case len(s) < MinLength:
		return Result{Slug: s, TooShort: true}
	default:
		return Result{Slug: s, Valid: true}
	}
}
