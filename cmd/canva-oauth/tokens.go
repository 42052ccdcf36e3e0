package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/canva-connect/auth"
)

var (
	refreshTokenFlag string
	tokenFlag        string
	typeHintFlag     string
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange a refresh token for a new access token",
	RunE:  runRefresh,
}

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Show whether a token is active",
	RunE:  runIntrospect,
}

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke an access or refresh token",
	RunE:  runRevoke,
}

func init() {
	refreshCmd.Flags().StringVar(&refreshTokenFlag, "refresh-token", "", "Refresh token to redeem")
	_ = refreshCmd.MarkFlagRequired("refresh-token")

	introspectCmd.Flags().StringVar(&tokenFlag, "token", "", "Token to introspect")
	_ = introspectCmd.MarkFlagRequired("token")

	revokeCmd.Flags().StringVar(&tokenFlag, "token", "", "Token to revoke")
	revokeCmd.Flags().StringVar(&typeHintFlag, "type-hint", "", "access_token or refresh_token")
	_ = revokeCmd.MarkFlagRequired("token")
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	client, err := newOAuthClient(cmd, nil)
	if err != nil {
		return err
	}

	// Seed the store so the client has a refresh token to redeem.
	client.TokenStore().Store(auth.TokenSet{RefreshToken: refreshTokenFlag})
	if _, err := client.RefreshToken(cmd.Context()); err != nil {
		return err
	}

	set, _ := client.TokenStore().Get()
	return printJSON(cmd.OutOrStdout(), newTokenOutput(set))
}

func runIntrospect(cmd *cobra.Command, _ []string) error {
	client, err := newOAuthClient(cmd, nil)
	if err != nil {
		return err
	}

	resp, err := client.IntrospectToken(cmd.Context(), tokenFlag)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func runRevoke(cmd *cobra.Command, _ []string) error {
	switch typeHintFlag {
	case "", "access_token", "refresh_token":
	default:
		return fmt.Errorf("invalid --type-hint %q: want access_token or refresh_token", typeHintFlag)
	}

	client, err := newOAuthClient(cmd, nil)
	if err != nil {
		return err
	}

	if err := client.RevokeToken(cmd.Context(), tokenFlag, typeHintFlag); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Token revoked")
	return nil
}
