package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Manage admin emails stored under admins/",
	}

	adminAddCmd = &cobra.Command{
		Use:   "add <email>",
		Short: "grant admin to an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := openCore(cmd)
			if err != nil {
				return err
			}
			defer core.Close()

			if err := core.Admins.AddAdmin(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", args[0])

			return nil
		},
	}

	adminCheckCmd = &cobra.Command{
		Use:   "check <email>",
		Short: "report whether an email is an admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := openCore(cmd)
			if err != nil {
				return err
			}
			defer core.Close()

			ok, err := core.Admins.IsAdmin(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s admin=%t\n", args[0], ok)

			return nil
		},
	}

	adminRemoveCmd = &cobra.Command{
		Use:   "rm <email>",
		Short: "revoke admin from an email (admin_emails in config still apply)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := openCore(cmd)
			if err != nil {
				return err
			}
			defer core.Close()

			return core.Admins.RemoveAdmin(cmd.Context(), args[0])
		},
	}

	adminListCmd = &cobra.Command{
		Use:   "ls",
		Short: "list admins stored in the path store",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := openCore(cmd)
			if err != nil {
				return err
			}
			defer core.Close()

			admins, err := core.Admins.ListAdmins(cmd.Context())
			if err != nil {
				return err
			}

			for _, a := range admins {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", a.Email, time.UnixMilli(a.AddedAt).Format(time.DateTime))
			}

			return nil
		},
	}
)

func registerAdminCommands() {
	adminCmd.AddCommand(adminAddCmd, adminCheckCmd, adminRemoveCmd, adminListCmd)
	rootCmd.AddCommand(adminCmd)
}
