package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/giantswarm/canva-connect/auth"
	"github.com/giantswarm/canva-connect/ratelimit"
	"github.com/giantswarm/canva-connect/security"
)

// Exit codes for CLI commands
const (
	ExitCodeSuccess    = 0
	ExitCodeError      = 1
	ExitCodeAuthFailed = 3
)

// Environment variables holding the integration's credentials
const (
	EnvClientID     = "CANVA_CLIENT_ID"
	EnvClientSecret = "CANVA_CLIENT_SECRET"
	EnvRedirectURI  = "CANVA_REDIRECT_URI"
)

// DefaultRedirectURI must be registered with the Canva integration
const DefaultRedirectURI = "http://127.0.0.1:8080/callback"

const defaultEnvFile = ".env"

// Global flags
var (
	envFile string
	verbose bool
	audit   bool
)

var rootCmd = &cobra.Command{
	Use:   "canva-oauth",
	Short: "Obtain and manage Canva Connect OAuth tokens",
	Long: `canva-oauth runs the Canva Connect OAuth 2.0 authorization code flow
with PKCE and manages the resulting tokens.

Credentials are read from CANVA_CLIENT_ID, CANVA_CLIENT_SECRET and
CANVA_REDIRECT_URI, optionally loaded from a .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "File to load environment variables from")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&audit, "audit", false, "Log security audit events")

	rootCmd.AddCommand(loginCmd, refreshCmd, introspectCmd, revokeCmd)
}

// SetVersion sets the version reported by --version
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits with a code describing the failure
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "canva-oauth version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if auth.IsAuthError(err) {
		return ExitCodeAuthFailed
	}
	return ExitCodeError
}

// loadEnvFile loads path into the environment without overriding variables
// already set. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadConfig builds the OAuth configuration from the environment
func loadConfig(scopes []auth.Scope) (auth.Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return auth.Config{}, err
	}

	cfg := auth.Config{
		ClientID:     strings.TrimSpace(os.Getenv(EnvClientID)),
		ClientSecret: os.Getenv(EnvClientSecret),
		RedirectURI:  strings.TrimSpace(os.Getenv(EnvRedirectURI)),
		Scopes:       scopes,
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return auth.Config{}, fmt.Errorf("%s and %s must be set", EnvClientID, EnvClientSecret)
	}
	if err := cfg.Validate(); err != nil {
		return auth.Config{}, err
	}
	return cfg, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newOAuthClient creates the client shared by all subcommands. Provider calls
// go through a conservative limiter.
func newOAuthClient(cmd *cobra.Command, scopes []auth.Scope) (*auth.Client, error) {
	cfg, err := loadConfig(scopes)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr())
	return auth.NewClient(cfg,
		auth.WithLogger(logger),
		auth.WithAuditor(security.NewAuditor(logger, audit)),
		auth.WithRateLimiter(ratelimit.Conservative(ratelimit.WithLogger(logger))),
	)
}

// tokenOutput is the JSON printed for a token set
type tokenOutput struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scope        string     `json:"scope,omitempty"`
}

func newTokenOutput(set auth.TokenSet) tokenOutput {
	out := tokenOutput{
		AccessToken:  set.AccessToken,
		RefreshToken: set.RefreshToken,
		TokenType:    set.TokenType,
		Scope:        set.Scope,
	}
	if !set.ExpiresAt.IsZero() {
		expiresAt := set.ExpiresAt
		out.ExpiresAt = &expiresAt
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
