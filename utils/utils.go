// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

// FirstHeaderValue returns the first comma separated entry of a header value,
// without any ";q=" parameters
func FirstHeaderValue(value string) string {
	first, _, _ := strings.Cut(value, ",")
	first, _, _ = strings.Cut(first, ";")
	return strings.TrimSpace(first)
}
