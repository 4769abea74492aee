package main

import (
	"fmt"

	"github.com/amirphl/qrtrack/app/dto"
	"github.com/spf13/cobra"
)

func newTokenCmd(opts *rootOptions, open appOpener) *cobra.Command {
	var adminID uint

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin access token for the maintenance API",
		RunE: withApp(open, func(cmd *cobra.Command, app *cliApp) error {
			tokens, err := app.tokenService()
			if err != nil {
				return fmt.Errorf("token service: %w", err)
			}
			token, err := tokens.GenerateAdminToken(adminID)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), dto.IssueAdminTokenResponse{
					AccessToken: token,
					TokenType:   "Bearer",
					ExpiresIn:   int(tokens.AccessTokenTTL().Seconds()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		}),
	}

	cmd.Flags().UintVar(&adminID, "admin-id", 1, "Admin ID embedded in the token")
	return cmd
}
