package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"simplebudget/internal/core"
)

func monthCmd(r *runner) *cobra.Command {
	var details, months bool
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show the overview and categories for the selected month",
		Long: `Show totals and the category tree for the active budget.

Use --period to pick another month and --months to list the months that
can be navigated to.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if months {
				current := r.store().Snapshot().Period
				for _, p := range r.store().Months() {
					marker := " "
					if p == current {
						marker = "*"
					}
					fmt.Fprintf(r.out, "%s %s\n", marker, p.Label())
				}
				return nil
			}
			st := r.store().Snapshot()
			if st.ActiveBudgetID == "" {
				return errNoBudget
			}
			printMonth(r.out, st, details)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&details, "transactions", "t", false, "Include every transaction")
	cmd.Flags().BoolVar(&months, "months", false, "List the months available for navigation")
	return cmd
}

var errNoBudget = errors.New(`no budget selected; create one with "simplebudget budgets create <name>"`)

// finish turns a command result into the CLI error. A write that succeeded
// but whose re-read failed surfaces the recorded session error.
func (r *runner) finish(err error) error {
	if err != nil {
		return check(err)
	}
	return r.sessionError()
}

// resolveCategory accepts a category id or its name in the current month.
func (r *runner) resolveCategory(ref string) (core.Category, error) {
	tree := r.store().Snapshot().Categories
	if c, ok := tree.FindCategory(ref); ok {
		return c, nil
	}
	if c, ok := tree[ref]; ok {
		return c, nil
	}
	for name, c := range tree {
		if strings.EqualFold(name, ref) {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("no category %q in %s", ref, r.store().Snapshot().Period.Label())
}

// resolveSubcategory accepts an id, "Category/Subcategory", or a
// subcategory name that is unique within the month.
func (r *runner) resolveSubcategory(ref string) (core.Category, core.Subcategory, error) {
	tree := r.store().Snapshot().Categories
	if c, sub, ok := tree.FindSubcategory(ref); ok {
		return c, sub, nil
	}

	catRef, subRef, qualified := strings.Cut(ref, "/")
	if qualified {
		c, err := r.resolveCategory(catRef)
		if err != nil {
			return core.Category{}, core.Subcategory{}, err
		}
		for _, sub := range c.Items {
			if strings.EqualFold(sub.Name, subRef) {
				return c, sub, nil
			}
		}
		return core.Category{}, core.Subcategory{}, fmt.Errorf("no subcategory %q in %q", subRef, c.Name)
	}

	var (
		found    []core.Subcategory
		foundCat core.Category
	)
	for _, name := range tree.Names() {
		for _, sub := range tree[name].Items {
			if strings.EqualFold(sub.Name, ref) {
				found = append(found, sub)
				foundCat = tree[name]
			}
		}
	}
	switch len(found) {
	case 0:
		return core.Category{}, core.Subcategory{}, fmt.Errorf("no subcategory %q", ref)
	case 1:
		return foundCat, found[0], nil
	default:
		return core.Category{}, core.Subcategory{}, fmt.Errorf("subcategory %q is ambiguous; use Category/%s", ref, ref)
	}
}

func (r *runner) findTransaction(id string) (core.Transaction, error) {
	for _, c := range r.store().Snapshot().Categories {
		for _, sub := range c.Items {
			for _, tx := range sub.Transactions {
				if tx.ID == id {
					return tx, nil
				}
			}
		}
	}
	return core.Transaction{}, fmt.Errorf("no transaction %q in %s", id, r.store().Snapshot().Period.Label())
}
