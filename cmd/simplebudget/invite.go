package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func inviteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "invite <email>",
		Short: "Invite someone to the active budget and print the link to share",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := r.store().InviteMember(cmd.Context(), args[0])
			if err != nil {
				return check(err)
			}
			fmt.Fprintf(r.out, "Invited %s to %q\n", inv.InviteeEmail, inv.BudgetName)
			fmt.Fprintln(r.out, inv.Link)
			return nil
		},
	}
}

func invitationCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invitation",
		Short: "Inspect or accept an invitation you received",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <token>",
			Short: "Show which budget an invitation is for",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				inv, err := r.store().ValidateInvitation(cmd.Context(), args[0])
				if err != nil {
					return check(err)
				}
				fmt.Fprintf(r.out, "Invitation to %q for %s\n", inv.BudgetName, inv.InviteeEmail)
				return nil
			},
		},
		&cobra.Command{
			Use:   "accept <token>",
			Short: "Join the budget and switch to it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := r.store().AcceptInvitation(cmd.Context(), args[0])
				if err != nil {
					return check(err)
				}
				fmt.Fprintf(r.out, "Joined %q\n", b.Name)
				return nil
			},
		},
	)
	return cmd
}
