package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/pkg/cli"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List enrolled users",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeSvc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeSvc()

		users, err := svc.ListEnrolledUsers(cmd.Context())
		if err != nil {
			return err
		}
		if users == nil {
			users = []string{}
		}
		return output(cmd, users, func(r *cli.Reporter) string { return r.Users(users) })
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
