// Package httpx holds helpers shared by the outbound HTTP clients.
package httpx

import "unicode/utf8"

// ExcerptLimit bounds how much of an error response body is kept for logs.
const ExcerptLimit = 512

// Excerpt returns at most limit bytes of body without splitting a UTF-8 rune.
func Excerpt(body []byte, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(body) <= limit {
		return string(body)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
