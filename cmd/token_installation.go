package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	tokenInstallationIDs []int64
	tokenInstallationRaw bool
)

var tokenInstallationCmd = &cobra.Command{
	Use:     "installation",
	Aliases: []string{"inst"},
	Short:   "Exchange the app token for installation tokens",
	Long: `Obtains installation access tokens for one or more installations.
Tokens of different installations are requested concurrently. If a token store is
configured, tokens still valid in the store are reused.`,
	Example: `  github-for-jira token installation -f config.yaml --id 1234
  github-for-jira token installation -f config.yaml --id 1234 --id 5678 --raw`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(tokenInstallationIDs) == 0 {
			return fmt.Errorf("at least one --id is required")
		}

		client, closeFn, err := f.GetClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		tokens, err := client.Prewarm(cmd.Context(), tokenInstallationIDs...)
		if err != nil {
			return err
		}
		log.Debug().Msgf("obtained %d installation token(s)", len(tokens))

		ids := make([]int64, 0, len(tokens))
		for id := range tokens {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		if tokenInstallationRaw {
			for _, id := range ids {
				fmt.Println(tokens[id].Token)
			}
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		applyTableFormat(t)
		t.AppendHeader(table.Row{"", "Installation", "Fingerprint", "Expires", "Token"})
		for _, id := range ids {
			token := tokens[id]
			t.AppendRow(table.Row{
				greenCheck,
				strconv.FormatInt(id, 10),
				token.Fingerprint(),
				expiresIn(token.ExpiresAt),
				token.Token,
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenInstallationCmd)
	tokenInstallationCmd.Flags().Int64SliceVar(&tokenInstallationIDs, "id", nil, "Installation ID (repeatable)")
	tokenInstallationCmd.Flags().BoolVar(&tokenInstallationRaw, "raw", false, "Print only the tokens, one per line")
}
