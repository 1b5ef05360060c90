package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored auth token",
	Long: `Manage the bearer token attached to prediction requests.

Available subcommands:
  set   - Store a token (clears the cached profile)
  clear - Forget the token
  show  - Show the token and the profile it carries`,
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <token>",
	Short: "Store an auth token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := clientState.SetAuthToken(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Token stored.")
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the stored auth token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := clientState.ClearAuthToken(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored token and profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		token, err := clientState.AuthToken(cmd.Context())
		if err != nil {
			return err
		}
		if token == "" {
			fmt.Fprintln(out, "Not logged in.")
			return nil
		}
		fmt.Fprintf(out, "Token: %s\n", maskToken(token))

		profile, err := clientState.UserProfile(cmd.Context())
		if err != nil {
			return err
		}
		if profile != nil && !profile.IsEmpty() {
			fmt.Fprintf(out, "User:  %s <%s>\n", profile.Name, profile.Email)
		}
		return nil
	},
}

func maskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:6] + "..." + token[len(token)-4:]
}
