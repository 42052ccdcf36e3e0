// Command canva-oauth runs the Canva Connect OAuth flow from a terminal.
//
// It obtains tokens with PKCE through a local callback server and can
// refresh, introspect and revoke them. Tokens are printed, never stored.
package main

// version can be set during build with -ldflags
var version = "dev"

func main() {
	SetVersion(version)
	Execute()
}
