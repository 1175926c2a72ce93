package utils

import "github.com/microcosm-cc/bluemonday"

var (
	contentPolicy = bluemonday.UGCPolicy()
	strictPolicy  = bluemonday.StrictPolicy()
)

// Sanitize cleans post content, keeping user-generated markup that is safe.
func Sanitize(input string) string {
	return contentPolicy.Sanitize(input)
}

// SanitizeStrict strips all markup; used for titles.
func SanitizeStrict(input string) string {
	return strictPolicy.Sanitize(input)
}
