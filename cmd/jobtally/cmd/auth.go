package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize read-only access to Gmail",
	Long: `Run the OAuth consent flow and store the resulting token.

A browser window opens on the consent page. If the redirect cannot reach
jobtally, paste the code or the full redirect URL when prompted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := newAuthorizer()
		if err != nil {
			return err
		}
		if err := auth.Authorize(cmd.Context()); err != nil {
			return wrapOAuthError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Authorization saved (%s token store).\n", cfg.Auth.TokenStore)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
