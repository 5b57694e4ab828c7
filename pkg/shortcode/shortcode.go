// Package shortcode generates and validates the alphanumeric codes that
// identify shortened links.
package shortcode

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the set of characters a code is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	MinLength = 6
	MaxLength = 8
)

// Generator produces random codes. The zero value is ready to use.
type Generator struct{}

// Generate returns a random code of the given length. Lengths outside
// [MinLength, MaxLength] are clamped into that range.
func (Generator) Generate(length int) (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(Alphabet, Clamp(length))
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate code: %w", op, err)
	}

	return code, nil
}

// Clamp bounds length to [MinLength, MaxLength].
func Clamp(length int) int {
	return max(MinLength, min(MaxLength, length))
}

// Valid reports whether code is 6 to 8 ASCII letters or digits.
func Valid(code string) bool {
	if len(code) < MinLength || len(code) > MaxLength {
		return false
	}

	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}

	return true
}

// reservedPrefixes are path segments owned by other routes.
var reservedPrefixes = []string{"api", "@", "src", "swagger", "docs"}

// Reserved reports whether a top-level path segment belongs to another route
// and must never be resolved as a code.
func Reserved(segment string) bool {
	if segment == "healthz" || segment == "code" || strings.Contains(segment, ".") {
		return true
	}

	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(segment, prefix) {
			return true
		}
	}

	return false
}
