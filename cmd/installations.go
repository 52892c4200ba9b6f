package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var installationsCmd = &cobra.Command{
	Use:     "installations",
	Aliases: []string{"ls"},
	Short:   "List installations of the app",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeFn, err := f.GetClient(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		installations, err := client.ListInstallations(cmd.Context())
		if err != nil {
			return err
		}
		if len(installations) == 0 {
			fmt.Println("The app has no installations.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		applyTableFormat(t)
		t.AppendHeader(table.Row{"", "ID", "Account", "Type", "Repositories", "Created"})

		for _, inst := range installations {
			status := greenCheck
			if inst.SuspendedAt != nil {
				status = redCross
			}
			created := color.New(color.Faint).Sprint("-")
			if inst.CreatedAt != nil {
				created = inst.GetCreatedAt().Local().Format("2006-01-02 15:04")
			}
			t.AppendRow(table.Row{
				status,
				strconv.FormatInt(inst.GetID(), 10),
				truncate(inst.GetAccount().GetLogin(), 32),
				inst.GetTargetType(),
				inst.GetRepositorySelection(),
				created,
			})
		}

		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installationsCmd)
}
