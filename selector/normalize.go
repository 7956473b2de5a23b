package selector

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var accessorPrefixes = []string{"get", "Get", "set", "Set"}

func stripAccessorPrefix(name string) string {
	for _, p := range accessorPrefixes {
		if !strings.HasPrefix(name, p) || len(name) == len(p) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(name[len(p):])
		if unicode.IsUpper(r) {
			return name[len(p):]
		}
	}
	return name
}

// Normalize maps an accessor name to a column-style name: a leading get/set is
// stripped, an underscore goes before every upper-case letter that follows a
// lower-case letter or digit, and the result is lower-cased.
//
//	getUserName -> user_name
//	GetUserName -> user_name
//	UserName    -> user_name
func Normalize(accessor string) string {
	name := stripAccessorPrefix(accessor)

	var sb strings.Builder
	sb.Grow(len(name) + 4)
	var prev rune
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return sb.String()
}
