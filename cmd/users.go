package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/splatctl/job"
	"github.com/s0up4200/splatctl/output"
)

// usersCmd groups user management
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List, add or remove database users",
	Long: `Manage who can access the selected databases.

User names without "@" get the configured domain appended:

  splatctl users add fred barney@other.org --tags qa
  splatctl users remove fred --db MyGame_Prod
  splatctl users list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the users of the selected databases",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersAddCmd = &cobra.Command{
	Use:   "add <user>...",
	Short: "Grant users access to the selected databases",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUsersChange(job.AddUsers),
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <user>...",
	Short: "Revoke users' access to the selected databases",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUsersChange(job.RemoveUsers),
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersRemoveCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	deps, err := newDeps(cmd)
	if err != nil {
		return err
	}

	listings, err := job.ListUsers(cmd.Context(), deps, selection())
	if err != nil {
		return err
	}

	for _, l := range listings {
		if l.Err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: failed to list users: %v\n", l.Database, l.Err)
			continue
		}
		if err := output.PrintUsers(cmd.OutOrStdout(), l.Database, l.Users); err != nil {
			return err
		}
	}
	return nil
}

type userChange func(ctx context.Context, deps job.Deps, p job.UserParams) (*job.UserReport, error)

func runUsersChange(change userChange) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		deps, err := newDeps(cmd)
		if err != nil {
			return err
		}

		report, err := change(cmd.Context(), deps, job.UserParams{
			Selection: selection(),
			Users:     args,
			Domain:    cfg.Domain,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d succeeded, %d failed, %d not found across %d databases\n",
			report.Succeeded, report.Failed, report.Missing, len(report.Selected))
		return nil
	}
}
