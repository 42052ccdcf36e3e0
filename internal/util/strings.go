// Package util provides common utility functions used across the canva-connect module.
package util

import "strings"

// SafeTruncate safely truncates a string to maxLen bytes without panicking.
// Returns the original string if it's shorter than maxLen, otherwise returns
// the first maxLen bytes. Used when logging tokens, where only a prefix
// should ever be shown.
//
// If maxLen is negative, it's treated as 0 and returns an empty string.
//
// Example:
//
//	SafeTruncate("very-long-token-abc123", 8) // Returns: "very-lon"
//	SafeTruncate("short", 10)                  // Returns: "short"
//	SafeTruncate("test", -1)                   // Returns: ""
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// NormalizeURL removes trailing slashes so that a base URL can be joined
// with an API path that starts with "/".
//
// Example:
//
//	NormalizeURL("https://api.canva.com/rest/v1/")   // Returns: "https://api.canva.com/rest/v1"
//	NormalizeURL("https://api.canva.com/rest/v1")    // Returns: "https://api.canva.com/rest/v1"
//	NormalizeURL("https://api.canva.com/rest/v1///") // Returns: "https://api.canva.com/rest/v1"
func NormalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}
