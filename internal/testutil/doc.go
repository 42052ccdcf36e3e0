// Package testutil provides testing utilities for the canva-connect module:
// an in-process fake of Canva's OAuth endpoints, token fixtures and small
// assertion helpers.
package testutil
