// Package sheets exports a month overview as a small table: a header, one
// row per category and a total row.
package sheets

import (
	"context"
	"strings"
	"unicode/utf8"

	"simplebudget/internal/core"
)

// Ports for outbound adapters.
type (
	// MonthWriter replaces the contents of a sheet with the month table.
	MonthWriter interface {
		WriteMonth(ctx context.Context, budgetName string, p core.Period, o core.Overview) (rangeRef string, err error)
	}

	// SheetWriter can also target a sheet by title, creating it if needed.
	SheetWriter interface {
		MonthWriter
		WriteMonthToSheet(ctx context.Context, sheet, budgetName string, p core.Period, o core.Overview) (rangeRef string, err error)
	}
)

const maxTitleLength = 100

// SheetTitle names the sheet that holds one budget's month, e.g.
// "Home - March 2025". Characters Sheets rejects in titles become '-'.
func SheetTitle(budgetName string, p core.Period) string {
	title := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', ':', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(budgetName)+" - "+p.Label())
	if utf8.RuneCountInString(title) > maxTitleLength {
		// Keep the month visible when long budget names are cut.
		suffix := " - " + p.Label()
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:maxTitleLength-utf8.RuneCountInString(suffix)])) + suffix
	}
	return title
}

// Header is the column header row of the exported table.
var Header = []string{"Category", "Budget", "Allotted", "Spent", "Remaining"}

// Rows renders the table written by every MonthWriter. The first row is a
// title, the second the header, the last the totals. Amounts are plain
// decimals with two places.
func Rows(budgetName string, p core.Period, o core.Overview) [][]string {
	rows := make([][]string, 0, len(o.Categories)+3)
	rows = append(rows, []string{budgetName, p.Label()})
	rows = append(rows, append([]string(nil), Header...))
	for _, c := range o.Categories {
		rows = append(rows, []string{c.Name, amount(c.Budget), amount(c.Allotted), amount(c.Spent), amount(c.Remaining)})
	}
	rows = append(rows, []string{"Total", amount(o.TotalBudget), amount(o.TotalAllotted), amount(o.TotalSpent), amount(o.Remaining)})
	return rows
}

func amount(m core.Money) string {
	return m.Decimal().StringFixed(2)
}
