package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coursekit/coursekit/cmd/util"
	"github.com/coursekit/coursekit/lib/notify"
)

var (
	// purgeCmd removes expired notifications
	purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Remove notifications past their retention windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			worker := notify.NewPurgeWorker(store, notify.PurgeConfig{
				UnreadTTL:  viper.GetDuration("unread-ttl"),
				ReadTTL:    viper.GetDuration("read-ttl"),
				ChunkPause: viper.GetDuration("pause"),
			}, log)

			result, err := worker.RunEvery(context.Background(), viper.GetInt("passes"))
			if err != nil {
				return err
			}
			fmt.Printf("purged %d notifications (%d archived)\n", result.Deleted, result.Archived)
			return nil
		},
	}

	// countCmd counts a user's notifications
	countCmd = &cobra.Command{
		Use:   "count [user-id]",
		Short: "Count the notifications of one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			count, err := store.GetNumNotificationsForUser(context.Background(), userID, flagFilters())
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		},
	}

	// namespacesCmd lists the namespaces in use
	namespacesCmd = &cobra.Command{
		Use:   "namespaces",
		Short: "List the distinct message namespaces in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			namespaces, err := store.GetAllNamespaces(context.Background())
			if err != nil {
				return err
			}
			for _, ns := range namespaces {
				fmt.Println(ns)
			}
			return nil
		},
	}

	// markReadCmd marks a user's notifications read
	markReadCmd = &cobra.Command{
		Use:   "mark-read [user-id]",
		Short: "Mark a user's matching notifications as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			return store.MarkUserNotificationsRead(context.Background(), userID, flagFilters())
		},
	}

	// timersCmd lists active callback timers
	timersCmd = &cobra.Command{
		Use:   "timers",
		Short: "List active callback timers",
		RunE: func(cmd *cobra.Command, args []string) error {
			timers, err := store.GetAllActiveTimers(context.Background(), viper.GetBool("include-executed"))
			if err != nil {
				return err
			}
			for _, timer := range timers {
				state := "pending"
				if timer.ExecutedAt != nil {
					state = "executed " + timer.ExecutedAt.Format(time.RFC3339)
				}
				fmt.Printf("%s\t%s\t%s\n", timer.Name, timer.CallbackAt.Format(time.RFC3339), state)
			}
			return nil
		},
	}
)

func init() {
	purgeCmd.Flags().Duration("unread-ttl", 0, util.WrapString("Remove unread notifications older than this (0 disables)"))
	purgeCmd.Flags().Duration("read-ttl", 0, util.WrapString("Remove read notifications older than this (0 disables)"))
	purgeCmd.Flags().Int("passes", 1, util.WrapString("Number of purge passes to run"))
	purgeCmd.Flags().Duration("pause", notify.DefaultPurgeChunkPause, util.WrapString("Pause between purge passes"))

	for _, cmd := range []*cobra.Command{countCmd, markReadCmd} {
		cmd.Flags().String("namespace", "", util.WrapString("Only notifications whose message has this namespace"))
		cmd.Flags().String("type", "", util.WrapString("Only notifications whose message has this type name"))
		cmd.Flags().Bool("unread-only", false, util.WrapString("Only unread notifications"))
		cmd.Flags().Bool("read-only", false, util.WrapString("Only read notifications"))
	}

	timersCmd.Flags().Bool("include-executed", false, util.WrapString("Include timers that have already executed"))
}

// flagFilters builds notification filters from the common filter flags
func flagFilters() *notify.Filters {
	filters := &notify.Filters{
		Namespace: viper.GetString("namespace"),
		TypeName:  viper.GetString("type"),
	}
	if viper.GetBool("unread-only") {
		filters.Read = notify.Bool(false)
	}
	if viper.GetBool("read-only") {
		filters.Unread = notify.Bool(false)
	}
	return filters
}
