package core

import "sort"

// CategorySummary is one row of the month overview / spending chart.
type CategorySummary struct {
	Name      string
	Budget    Money
	Allotted  Money
	Spent     Money
	Remaining Money
}

// Overview aggregates a tree. TotalBudget sums the stored category budgets;
// Unallocated is the part of that budget not handed out to subcategories.
type Overview struct {
	TotalBudget   Money
	TotalAllotted Money
	TotalSpent    Money
	Remaining     Money
	Unallocated   Money
	SpentPercent  int
	Categories    []CategorySummary
}

// Spent is the sum of the subcategory's transaction amounts.
func (s Subcategory) Spent() Money {
	var total Money
	for _, tx := range s.Transactions {
		total = total.Add(tx.Amount)
	}
	return total
}

func (s Subcategory) Remaining() Money {
	return s.Allotted.Sub(s.Spent())
}

// Spent is the sum of every descendant transaction.
func (c Category) Spent() Money {
	var total Money
	for _, sub := range c.Items {
		total = total.Add(sub.Spent())
	}
	return total
}

// Allotted sums the children's planning figures. It is informational:
// the category's own Budget is the canonical planned figure.
func (c Category) Allotted() Money {
	var total Money
	for _, sub := range c.Items {
		total = total.Add(sub.Allotted)
	}
	return total
}

func (c Category) Remaining() Money {
	return c.Budget.Sub(c.Spent())
}

func (c Category) Summary() CategorySummary {
	return CategorySummary{
		Name:      c.Name,
		Budget:    c.Budget,
		Allotted:  c.Allotted(),
		Spent:     c.Spent(),
		Remaining: c.Remaining(),
	}
}

// Names returns the category names in stable (alphabetical) order.
func (t Tree) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone deep-copies the tree so snapshots never alias store state.
func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for name, c := range t {
		items := make([]Subcategory, len(c.Items))
		for i, sub := range c.Items {
			sub.Transactions = append([]Transaction(nil), sub.Transactions...)
			items[i] = sub
		}
		c.Items = items
		out[name] = c
	}
	return out
}

// FindSubcategory looks a subcategory up by id across all categories.
func (t Tree) FindSubcategory(id string) (Category, Subcategory, bool) {
	for _, c := range t {
		for _, sub := range c.Items {
			if sub.ID == id {
				return c, sub, true
			}
		}
	}
	return Category{}, Subcategory{}, false
}

// FindCategory looks a category up by id.
func (t Tree) FindCategory(id string) (Category, bool) {
	for _, c := range t {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Overview computes the totals shown above the category list and the
// per-category rows of the spending chart.
func (t Tree) Overview() Overview {
	var o Overview
	for _, name := range t.Names() {
		row := t[name].Summary()
		o.Categories = append(o.Categories, row)
		o.TotalBudget = o.TotalBudget.Add(row.Budget)
		o.TotalAllotted = o.TotalAllotted.Add(row.Allotted)
		o.TotalSpent = o.TotalSpent.Add(row.Spent)
	}
	o.Remaining = o.TotalBudget.Sub(o.TotalSpent)
	o.Unallocated = o.TotalBudget.Sub(o.TotalAllotted)
	o.SpentPercent = percent(o.TotalSpent.Cents, o.TotalBudget.Cents)
	return o
}

// percent rounds half up; a zero budget reports 0%.
func percent(part, whole int64) int {
	if whole <= 0 {
		return 0
	}
	return int((part*100 + whole/2) / whole)
}
