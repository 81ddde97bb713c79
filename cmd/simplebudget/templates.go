package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"simplebudget/internal/templates"
)

func templatesCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template"},
		Short:   "Stamp category layouts onto a month",
	}
	cmd.AddCommand(
		templatesListCmd(r),
		templatesShowCmd(r),
		templatesApplyCmd(r),
		templatesSaveCmd(r),
		templatesDeleteCmd(r),
	)
	return cmd
}

func templatesListCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in and saved templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := r.app.Templates.List(cmd.Context())
			if err != nil {
				return err
			}
			printTemplates(r.out, list)
			return nil
		},
	}
}

func templatesShowCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <template>",
		Short: "Show a template's categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := r.app.Templates.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(r.out, "%s: %s\n", t.Name, t.Description)
			for _, c := range t.Categories {
				fmt.Fprintf(r.out, "  %s (%s)\n", c.Name, c.Budget)
				for _, sub := range c.Subcategories {
					fmt.Fprintf(r.out, "    %s (%s)\n", sub.Name, sub.Allotted)
				}
			}
			return nil
		},
	}
}

func splitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func templatesApplyCmd(r *runner) *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "apply <template>",
		Short: "Create the template's categories in the selected month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := r.app.Templates.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cats, err := t.Select(splitNames(only)...)
			if err != nil {
				return err
			}
			if err := r.finish(r.app.Templates.Apply(cmd.Context(), r.store(), t, cats)); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Applied %q (%d categories) to %s\n", t.Name, len(cats), r.store().Snapshot().Period.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "only", "", "Comma-separated category names to apply (default: all)")
	return cmd
}

func templatesSaveCmd(r *runner) *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save the selected month's categories as a template",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := r.store().Snapshot()
			if st.ActiveBudgetID == "" {
				return errNoBudget
			}
			cats, err := templates.PresetsFromTree(st.Categories, splitNames(only)...)
			if err != nil {
				return err
			}
			t, err := r.app.Templates.Save(cmd.Context(), strings.Join(args, " "), st.Period, cats)
			if err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Saved template %q (%s)\n", t.Name, t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "only", "", "Comma-separated category names to save (default: all)")
	return cmd
}

func templatesDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <template id>",
		Short: "Delete a saved template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.app.Templates.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Deleted template %s\n", args[0])
			return nil
		},
	}
}
