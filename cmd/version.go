package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sasank-xyz/github-for-jira/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(buildinfo.GetBuildInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
