package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tokenAppRaw bool

var tokenAppCmd = &cobra.Command{
	Use:   "app",
	Short: "Sign an app token (JWT)",
	Long: `Signs a short-lived JWT that authenticates as the GitHub App itself.
The token is valid for 10 minutes and can be used for app-level endpoints only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeFn, err := f.GetClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		token, err := client.AppToken()
		if err != nil {
			return err
		}

		if tokenAppRaw {
			fmt.Println(token.Token)
			return nil
		}

		fmt.Printf("%s App token signed\n", greenCheck)
		fmt.Printf("  %s  %s\n", color.New(color.Bold).Sprint("Fingerprint:"), token.Fingerprint())
		fmt.Printf("  %s   %s (%s)\n", color.New(color.Bold).Sprint("Expires at:"),
			token.ExpiresAt.Local().Format("2006-01-02 15:04:05"), expiresIn(token.ExpiresAt))
		fmt.Println()
		fmt.Println(token.Token)
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenAppCmd)
	tokenAppCmd.Flags().BoolVar(&tokenAppRaw, "raw", false, "Print only the token")
}
