package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func budgetsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"budget"},
		Short:   "List and manage budgets",
	}
	cmd.AddCommand(
		budgetsListCmd(r),
		budgetsCreateCmd(r),
		budgetsRenameCmd(r),
		budgetsDeleteCmd(r),
		budgetsUseCmd(r),
	)
	return cmd
}

func budgetsListCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the budgets you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := r.store().Snapshot()
			if st.NeedsOnboarding() {
				fmt.Fprintln(r.out, `No budgets yet. Create one with "simplebudget budgets create <name>".`)
				return nil
			}
			printBudgets(r.out, st.Budgets, st.ActiveBudgetID)
			return nil
		},
	}
}

func budgetsCreateCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a budget and switch to it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := r.store().CreateBudget(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return check(err)
			}
			fmt.Fprintf(r.out, "Created budget %q (%s)\n", b.Name, b.ID)
			return nil
		},
	}
}

func budgetsRenameCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <budget> <new name>",
		Short: "Rename a budget",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := r.resolveBudget(args[0])
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			if err := r.store().RenameBudget(cmd.Context(), b.ID, name); err != nil {
				return check(err)
			}
			fmt.Fprintf(r.out, "Renamed %q to %q\n", b.Name, name)
			return nil
		},
	}
}

func budgetsDeleteCmd(r *runner) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <budget>",
		Short: "Delete a budget and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := r.resolveBudget(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete %q without --yes", b.Name)
			}
			if err := r.store().DeleteBudget(cmd.Context(), b.ID); err != nil {
				return check(err)
			}
			fmt.Fprintf(r.out, "Deleted budget %q\n", b.Name)
			if active, ok := r.store().Snapshot().ActiveBudget(); ok {
				fmt.Fprintf(r.out, "Now using %q\n", active.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

func budgetsUseCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "use <budget>",
		Short: "Make a budget the default for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := r.resolveBudget(args[0])
			if err != nil {
				return err
			}
			if err := r.store().SwitchBudget(cmd.Context(), b.ID); err != nil {
				return check(err)
			}
			fmt.Fprintf(r.out, "Using budget %q\n", b.Name)
			return r.sessionError()
		},
	}
}
