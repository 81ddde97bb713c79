package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"simplebudget/internal/core"
	"simplebudget/internal/session"
	"simplebudget/internal/templates"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func printBudgets(out io.Writer, budgets []core.Budget, activeID string) {
	tw := newTable(out)
	fmt.Fprintln(tw, "\tID\tNAME\tMEMBERS")
	for _, b := range budgets {
		marker := ""
		if b.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", marker, b.ID, b.Name, b.MemberCount)
	}
	_ = tw.Flush()
}

func printOverview(out io.Writer, budgetName string, p core.Period, o core.Overview) {
	fmt.Fprintf(out, "%s: %s\n\n", budgetName, p.Label())
	fmt.Fprintf(out, "Budget     %s\n", o.TotalBudget)
	fmt.Fprintf(out, "Spent      %s (%d%%)\n", o.TotalSpent, o.SpentPercent)
	fmt.Fprintf(out, "Remaining  %s\n", o.Remaining)
	if o.Unallocated.Cents != 0 {
		fmt.Fprintf(out, "Unallocated %s\n", o.Unallocated)
	}
}

// printTree lists categories alphabetically with their subcategories and,
// when details is set, every transaction.
func printTree(out io.Writer, tree core.Tree, details bool) {
	if len(tree) == 0 {
		fmt.Fprintln(out, "No categories for this month.")
		return
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "CATEGORY\tSUBCATEGORY\tPLANNED\tSPENT\tREMAINING\tID")
	for _, name := range tree.Names() {
		c := tree[name]
		fmt.Fprintf(tw, "%s\t\t%s\t%s\t%s\t%s\n", c.Name, c.Budget, c.Spent(), c.Remaining(), c.ID)
		for _, sub := range c.Items {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\t%s\t%s\n", sub.Name, sub.Allotted, sub.Spent(), sub.Remaining(), sub.ID)
			if !details {
				continue
			}
			for _, tx := range sub.Transactions {
				fmt.Fprintf(tw, "\t  %s %s\t\t%s\t\t%s\n", tx.Date, tx.Description, tx.Amount, tx.ID)
			}
		}
	}
	_ = tw.Flush()
}

func printMonth(out io.Writer, st session.State, details bool) {
	b, _ := st.ActiveBudget()
	printOverview(out, b.Name, st.Period, st.Categories.Overview())
	fmt.Fprintln(out)
	printTree(out, st.Categories, details)
}

func printTemplates(out io.Writer, list []templates.Template) {
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORIES\tDESCRIPTION")
	for _, t := range list {
		name := t.Name
		if t.BuiltIn {
			name += " (built-in)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.ID, name, len(t.Categories), t.Description)
	}
	_ = tw.Flush()
}
