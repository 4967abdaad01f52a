package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/pkg/profilestore"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Profile store maintenance",
}

var storeRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair a damaged profile document",
	Long: `Repair the JSON profile document of a file store after a crash or a
manual edit left it unparsable. The damaged file is kept next to the
document with a .corrupt suffix. Only file stores can be repaired.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		store, err := cfg.OpenStore(newLogger(cmd, cfg))
		if err != nil {
			return err
		}
		defer store.Close()

		fs, ok := store.(*profilestore.FileStore)
		if !ok {
			return fmt.Errorf("store kind %q cannot be repaired", cfg.Store.Kind)
		}
		repaired, err := fs.Repair(cmd.Context())
		if err != nil {
			return err
		}
		return output(cmd, map[string]any{"path": fs.Path(), "repaired": repaired}, nil)
	},
}

func init() {
	storeCmd.AddCommand(storeRepairCmd)
	rootCmd.AddCommand(storeCmd)
}
