package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richText  = bluemonday.UGCPolicy()
	plainText = bluemonday.StrictPolicy()
)

// Sanitize cleans editor HTML, keeping formatting and links but dropping scripts and handlers.
func Sanitize(input string) string {
	return richText.Sanitize(input)
}

// StripTags removes all markup, for fields rendered as plain text.
func StripTags(input string) string {
	return strings.TrimSpace(plainText.Sanitize(input))
}
