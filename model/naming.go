package model

import (
	"unicode"
)

// ToSnake converts a Go identifier to lower_snake_case.
// Acronyms stay together: "UserID" -> "user_id", "HTTPServer" -> "http_server".
func ToSnake(s string) string {
	if s == "ID" {
		return "id"
	}
	runes := []rune(s)
	res := make([]rune, 0, len(runes)+4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				res = append(res, '_')
			}
			res = append(res, unicode.ToLower(r))
		} else {
			res = append(res, r)
		}
	}
	return string(res)
}
