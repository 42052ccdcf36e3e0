// Package util provides common utility functions used across the canva-connect module.
//
// This package contains helper functions for string manipulation and formatting
// that don't fit into domain-specific packages.
//
// Key utilities:
//   - SafeTruncate: Safely truncates strings for logging sensitive data
//   - NormalizeURL: Strips trailing slashes from base URLs
package util
