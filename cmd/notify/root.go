package notify

import (
	"github.com/spf13/cobra"

	"github.com/coursekit/coursekit/cmd/util"
	"github.com/coursekit/coursekit/lib/logger"
	"github.com/coursekit/coursekit/lib/notify"
)

var (
	store notify.Store
	log   *logger.Logger

	// NotifyCommands represents the notification command group
	NotifyCommands = &cobra.Command{
		Use:               "notify",
		Short:             "Inspect and maintain the notification database",
		PersistentPreRunE: setupStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	NotifyCommands.PersistentFlags().String("db", "coursekit.db", util.WrapString("Path of the sqlite notification database"))
	NotifyCommands.PersistentFlags().Bool("archive", true, util.WrapString("Copy purged notifications into the archive table before deleting them"))
	NotifyCommands.PersistentFlags().Int("max-bulk-size", notify.DefaultMaxBulkSize, util.WrapString("Maximum number of records per bulk insert"))
	NotifyCommands.PersistentFlags().Int("max-list-size", notify.DefaultMaxListSize, util.WrapString("Maximum (and default) page size for queries"))

	// Add subcommands
	NotifyCommands.AddCommand(purgeCmd)
	NotifyCommands.AddCommand(countCmd)
	NotifyCommands.AddCommand(namespacesCmd)
	NotifyCommands.AddCommand(markReadCmd)
	NotifyCommands.AddCommand(timersCmd)
}

// setupStore opens the sqlite-backed store all subcommands operate on
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	log, err = util.GetLogger()
	if err != nil {
		return err
	}

	store, err = util.OpenNotifyStore(log)
	return err
}
