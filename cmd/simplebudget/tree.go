package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"simplebudget/internal/core"
)

func categoryCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage the month's categories",
	}
	cmd.AddCommand(categoryAddCmd(r), categoryEditCmd(r), categoryDeleteCmd(r))
	return cmd
}

func categoryAddCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <budget>",
		Short: "Add a category with a planned budget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParsePlannedAmount(args[1])
			if err != nil {
				return fmt.Errorf("budget %q: %w", args[1], err)
			}
			err = r.store().CreateCategory(cmd.Context(), core.CategoryInput{Name: args[0], Budget: amount})
			if err := r.finish(err); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Added category %q (%s)\n", args[0], amount)
			return nil
		},
	}
}

func categoryEditCmd(r *runner) *cobra.Command {
	var name, budget string
	cmd := &cobra.Command{
		Use:   "edit <category>",
		Short: "Rename a category or change its budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.resolveCategory(args[0])
			if err != nil {
				return err
			}
			in := core.CategoryInput{Name: c.Name, Budget: c.Budget}
			if name != "" {
				in.Name = name
			}
			if budget != "" {
				if in.Budget, err = core.ParsePlannedAmount(budget); err != nil {
					return fmt.Errorf("budget %q: %w", budget, err)
				}
			}
			if err := r.finish(r.store().EditCategory(cmd.Context(), c.ID, in)); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Updated category %q\n", in.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&budget, "budget", "", "New planned budget")
	return cmd
}

func categoryDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category>",
		Short: "Delete a category with its subcategories and transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.resolveCategory(args[0])
			if err != nil {
				return err
			}
			if err := r.finish(r.store().DeleteCategory(cmd.Context(), c.ID)); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Deleted category %q\n", c.Name)
			return nil
		},
	}
}

func subcategoryCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subcategory",
		Aliases: []string{"sub"},
		Short:   "Manage subcategories",
	}
	cmd.AddCommand(subcategoryAddCmd(r), subcategoryEditCmd(r), subcategoryDeleteCmd(r))
	return cmd
}

func subcategoryAddCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "add <category> <name> [allotted]",
		Short: "Add a subcategory under a category",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.resolveCategory(args[0])
			if err != nil {
				return err
			}
			var allotted core.Money
			if len(args) == 3 {
				if allotted, err = core.ParsePlannedAmount(args[2]); err != nil {
					return fmt.Errorf("allotted %q: %w", args[2], err)
				}
			}
			err = r.store().CreateSubcategory(cmd.Context(), core.SubcategoryInput{
				CategoryID: c.ID,
				Name:       args[1],
				Allotted:   allotted,
			})
			if err := r.finish(err); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Added %s/%s\n", c.Name, args[1])
			return nil
		},
	}
}

func subcategoryEditCmd(r *runner) *cobra.Command {
	var name, allotted string
	cmd := &cobra.Command{
		Use:   "edit <subcategory>",
		Short: "Rename a subcategory or change its allotment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sub, err := r.resolveSubcategory(args[0])
			if err != nil {
				return err
			}
			in := core.SubcategoryInput{CategoryID: c.ID, Name: sub.Name, Allotted: sub.Allotted}
			if name != "" {
				in.Name = name
			}
			if allotted != "" {
				if in.Allotted, err = core.ParsePlannedAmount(allotted); err != nil {
					return fmt.Errorf("allotted %q: %w", allotted, err)
				}
			}
			if err := r.finish(r.store().UpdateSubcategory(cmd.Context(), sub.ID, in)); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Updated %s/%s\n", c.Name, in.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&allotted, "allotted", "", "New allotment")
	return cmd
}

func subcategoryDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <subcategory>",
		Short: "Delete a subcategory and its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sub, err := r.resolveSubcategory(args[0])
			if err != nil {
				return err
			}
			if err := r.finish(r.store().DeleteSubcategory(cmd.Context(), sub.ID)); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Deleted %s/%s\n", c.Name, sub.Name)
			return nil
		},
	}
}

func txCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction"},
		Short:   "Record, edit and delete transactions",
	}
	cmd.AddCommand(txAddCmd(r), txEditCmd(r), txDeleteCmd(r))
	return cmd
}

// defaultDate is today when today falls in the selected month, otherwise
// the first day of that month.
func (r *runner) defaultDate() core.Date {
	p := r.store().Snapshot().Period
	today := r.app.Now()
	if core.PeriodOf(today) == p {
		return core.NewDate(today.Year(), int(today.Month()), today.Day())
	}
	return core.NewDate(p.Year, p.Month, 1)
}

func txAddCmd(r *runner) *cobra.Command {
	var date, icon string
	cmd := &cobra.Command{
		Use:   "add <subcategory> <description> <amount>",
		Short: "Record a transaction",
		Example: `  simplebudget tx add Food/Groceries "Weekly shop" 42.50
  simplebudget tx add Groceries Bakery 3,20 --date 2025-03-02`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sub, err := r.resolveSubcategory(args[0])
			if err != nil {
				return err
			}
			in, err := r.transactionInput(sub.ID, args[1], args[2], date, icon)
			if err != nil {
				return err
			}
			if err := r.finish(r.store().CreateTransaction(cmd.Context(), in)); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Recorded %s for %q on %s\n", in.Amount, in.Description, in.Date)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default: today, or the 1st of the selected month)")
	cmd.Flags().StringVar(&icon, "icon", "", "Icon name (default: "+core.DefaultIcon+")")
	return cmd
}

func (r *runner) transactionInput(subID, description, amount, date, icon string) (core.TransactionInput, error) {
	in := core.TransactionInput{
		SubcategoryID: subID,
		Description:   strings.TrimSpace(description),
		Icon:          icon,
		Date:          r.defaultDate(),
	}
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return in, fmt.Errorf("amount %q: %w", amount, err)
	}
	in.Amount = core.Money{Cents: cents}
	if date != "" {
		if in.Date, err = core.ParseDate(date); err != nil {
			return in, fmt.Errorf("date %q: %w", date, err)
		}
	}
	return in, nil
}

func txEditCmd(r *runner) *cobra.Command {
	var description, amount, date, icon, move string
	cmd := &cobra.Command{
		Use:   "edit <transaction id>",
		Short: "Change a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := r.findTransaction(args[0])
			if err != nil {
				return err
			}
			in := core.TransactionInput{
				SubcategoryID: tx.SubcategoryID,
				Description:   tx.Description,
				Amount:        tx.Amount,
				Date:          tx.Date,
				Icon:          tx.Icon,
			}
			if move != "" {
				_, sub, err := r.resolveSubcategory(move)
				if err != nil {
					return err
				}
				in.SubcategoryID = sub.ID
			}
			if description != "" {
				in.Description = description
			}
			if amount != "" {
				cents, err := core.ParseDecimalToCents(amount)
				if err != nil {
					return fmt.Errorf("amount %q: %w", amount, err)
				}
				in.Amount = core.Money{Cents: cents}
			}
			if date != "" {
				if in.Date, err = core.ParseDate(date); err != nil {
					return fmt.Errorf("date %q: %w", date, err)
				}
			}
			if icon != "" {
				in.Icon = icon
			}
			if err := r.finish(r.store().UpdateTransaction(cmd.Context(), tx.ID, in)); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Updated transaction %s\n", tx.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&amount, "amount", "", "New amount")
	cmd.Flags().StringVar(&date, "date", "", "New date as YYYY-MM-DD")
	cmd.Flags().StringVar(&icon, "icon", "", "New icon")
	cmd.Flags().StringVar(&move, "subcategory", "", "Move to another subcategory")
	return cmd
}

func txDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <transaction id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.finish(r.store().DeleteTransaction(cmd.Context(), args[0])); err != nil {
				return err
			}
			fmt.Fprintf(r.out, "Deleted transaction %s\n", args[0])
			return nil
		},
	}
}
