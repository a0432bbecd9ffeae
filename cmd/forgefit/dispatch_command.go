package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"forgefit/internal/adapters/http/perf"
	"forgefit/internal/application/orchestrators"
	notificationDomain "forgefit/internal/domain/notification"
)

func newDispatchCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var message string
	var policy string

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Create a notification for a member and deliver it now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if policy == "" {
				policy = cfg.FailurePolicy
			}

			collector := perf.NewCollector(perf.DefaultRingSize)
			be, err := openBackend(cmd.Context(), cfg, collector)
			if err != nil {
				return err
			}
			defer be.Close()

			emailSender, smsSender, err := senders(cfg)
			if err != nil {
				return err
			}

			record, err := be.notifications.Create(cmd.Context(), notificationDomain.Record{
				ID:        uuid.NewString(),
				UserID:    strings.TrimSpace(userID),
				Message:   message,
				CreatedAt: time.Now().UTC(),
			})
			if err != nil {
				return fmt.Errorf("create notification: %w", err)
			}

			result, err := orchestrators.ExecuteDispatchNotification(cmd.Context(), record.Event(), orchestrators.DispatchNotificationDeps{
				ProfileStore: be.profiles,
				OutcomeStore: be.notifications,
				EmailSender:  emailSender,
				SMSSender:    smsSender,
				Email:        cfg.Email,
				SMS:          cfg.SMS,
				Policy:       policy,
				Collector:    collector,
				Now:          time.Now,
			})
			if err != nil {
				return fmt.Errorf("dispatch %s: %w", record.ID, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Notification %s: %s\n", record.ID, result.Status)
			fmt.Fprintln(out, renderChannelTable(result.Channels))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Recipient user id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Notification text")
	cmd.Flags().StringVar(&policy, "policy", "", "Failure policy: isolate or abort (defaults to config)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func renderChannelTable(channels []notificationDomain.ChannelResult) string {
	rows := make([][]string, 0, len(channels))
	for _, c := range channels {
		rows = append(rows, []string{c.Channel, yesNo(c.Attempted), yesNo(c.OK), c.Detail})
	}
	return renderTable(channelColumns, rows)
}
