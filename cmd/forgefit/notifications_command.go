package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forgefit/internal/adapters/http/perf"
	notificationStore "forgefit/internal/adapters/storage/notification"
	notificationDomain "forgefit/internal/domain/notification"
)

func newNotificationsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "notifications <user-id>",
		Short: "List a member's most recent notifications and their delivery outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			be, err := openBackend(cmd.Context(), cfg, perf.NewCollector(perf.DefaultRingSize))
			if err != nil {
				return err
			}
			defer be.Close()

			records, err := be.notifications.ListRecentByUser(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No notifications")
				return nil
			}
			fmt.Fprintln(out, renderNotificationTable(records))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", notificationStore.DefaultListLimit, "Maximum rows to show")
	return cmd
}

func renderNotificationTable(records []notificationDomain.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID,
			formatTime(r.CreatedAt),
			yesNo(r.Outcome.SentEmail),
			yesNo(r.Outcome.SentSMS),
			formatTime(r.Outcome.SentAt),
			r.Message,
		})
	}
	return renderTable(notificationColumns, rows)
}
