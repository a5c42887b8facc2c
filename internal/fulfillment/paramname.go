package fulfillment

import (
	"strings"
	"unicode"
)

// snakeCase ports the original's
// `re.sub(r'((?<=[a-z0-9])[A-Z]|(?!^)[A-Z](?=[a-z]))', r'_\1', name).lower()`
// camelCase-to-snake_case conversion. Go's RE2 engine has no
// lookaround, so the boundary detection is done by hand: insert an
// underscore before an uppercase letter that follows a lowercase
// letter or digit, or that is itself followed by a lowercase letter
// (and isn't the first rune).
func snakeCase(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLowerOrDigit := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLowerOrDigit || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
