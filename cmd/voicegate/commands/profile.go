package commands

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/pkg/cli"
	"github.com/haivivi/voicegate/pkg/voiceprint"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect stored voice profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Show the stored profile of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeSvc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeSvc()

		p, err := svc.Profile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output(cmd, p, func(r *cli.Reporter) string { return r.Profile(p) })
	},
}

var profileCheckCmd = &cobra.Command{
	Use:   "check <user>",
	Short: "Check profile integrity and schema compatibility",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeSvc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeSvc()

		c, err := svc.CheckProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := output(cmd, c, func(r *cli.Reporter) string { return r.ProfileCheck(c) }); err != nil {
			return err
		}
		if !c.OK() {
			return fmt.Errorf("profile %q is unusable; re-enroll or restore the backup", args[0])
		}
		return nil
	},
}

var profileBackupRestore bool

var profileBackupCmd = &cobra.Command{
	Use:   "backup <user>",
	Short: "Show or restore the previous profile of a user",
	Long: `Every enrollment keeps the replaced profile as a backup. Without flags
the backup is shown; --restore makes it current again, and the replaced
profile becomes the new backup.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeSvc, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeSvc()

		var p *voiceprint.Profile
		if profileBackupRestore {
			p, err = svc.RestoreBackup(cmd.Context(), args[0])
		} else {
			p, err = svc.Backup(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		return output(cmd, p, func(r *cli.Reporter) string { return r.Profile(p) })
	},
}

var profileSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of a stored profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := profileSchema()
		if err != nil {
			return err
		}
		return output(cmd, s, nil)
	},
}

func profileSchema() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[voiceprint.Profile](&jsonschema.ForOptions{
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[time.Time](): {Type: "string", Format: "date-time"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("profile schema: %w", err)
	}
	s.Title = "voicegate profile " + voiceprint.SchemaVersion
	return s, nil
}

func init() {
	profileBackupCmd.Flags().BoolVar(&profileBackupRestore, "restore", false, "make the backup the current profile")
	profileCmd.AddCommand(profileShowCmd, profileCheckCmd, profileBackupCmd, profileSchemaCmd)
	rootCmd.AddCommand(profileCmd)
}
