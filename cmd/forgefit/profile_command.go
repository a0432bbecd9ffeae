package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forgefit/internal/adapters/http/perf"
	profileDomain "forgefit/internal/domain/profile"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or edit member contact channels",
	}
	cmd.AddCommand(newProfileShowCommand(ctx))
	cmd.AddCommand(newProfileSetCommand(ctx))
	return cmd
}

func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show the contact channels used for a member",
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

			p, err := be.profiles.GetContact(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProfileTable(args[0], p))
			return nil
		},
	}
}

func newProfileSetCommand(ctx *commandContext) *cobra.Command {
	var emailAddr string
	var phone string
	cmd := &cobra.Command{
		Use:   "set <user-id>",
		Short: "Create or update a member's contact channels (SQL storage only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Storage.IsSQL() {
				return errSQLOnly
			}
			be, err := openBackend(cmd.Context(), cfg, perf.NewCollector(perf.DefaultRingSize))
			if err != nil {
				return err
			}
			defer be.Close()

			p := profileDomain.New(args[0], emailAddr, phone)
			if err := be.profileWriter.Save(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProfileTable(args[0], p))
			return nil
		},
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "Email address (empty clears it)")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number in E.164 form (empty clears it)")
	return cmd
}

func renderProfileTable(userID string, p profileDomain.Profile) string {
	return renderTable(profileColumns, [][]string{{userID, p.Email, p.Phone}})
}
