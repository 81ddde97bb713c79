package core

import "testing"

func sampleTree() Tree {
	return Tree{
		"Food": {
			ID: "1", Name: "Food", Budget: Money{Cents: 50000},
			Items: []Subcategory{
				{ID: "10", Name: "Groceries", Allotted: Money{Cents: 30000}, Transactions: []Transaction{
					{ID: "100", Amount: Money{Cents: 4250}},
					{ID: "101", Amount: Money{Cents: 1999}},
				}},
				{ID: "11", Name: "Dining", Allotted: Money{Cents: 10000}, Transactions: []Transaction{
					{ID: "102", Amount: Money{Cents: 3500}},
				}},
			},
		},
		"Home": {
			ID: "2", Name: "Home", Budget: Money{Cents: 120000},
			Items: []Subcategory{
				{ID: "20", Name: "Rent", Allotted: Money{Cents: 120000}, Transactions: []Transaction{
					{ID: "200", Amount: Money{Cents: 120000}},
				}},
			},
		},
		"Empty": {ID: "3", Name: "Empty"},
	}
}

func TestSpentIsSumOfTransactions(t *testing.T) {
	tree := sampleTree()
	food := tree["Food"]
	if got := food.Items[0].Spent(); got.Cents != 6249 {
		t.Fatalf("groceries spent = %d", got.Cents)
	}
	if got := food.Spent(); got.Cents != 9749 {
		t.Fatalf("food spent = %d", got.Cents)
	}
	if got := food.Allotted(); got.Cents != 40000 {
		t.Fatalf("food allotted = %d", got.Cents)
	}
	if got := food.Remaining(); got.Cents != 50000-9749 {
		t.Fatalf("food remaining = %d", got.Cents)
	}
	if got := tree["Empty"].Spent(); got.Cents != 0 {
		t.Fatalf("empty spent = %d", got.Cents)
	}
}

func TestOverviewTotalsMatchTransactions(t *testing.T) {
	tree := sampleTree()
	o := tree.Overview()

	var sum int64
	for _, c := range tree {
		for _, s := range c.Items {
			for _, tx := range s.Transactions {
				sum += tx.Amount.Cents
			}
		}
	}
	if o.TotalSpent.Cents != sum {
		t.Fatalf("total spent %d != transaction sum %d", o.TotalSpent.Cents, sum)
	}

	var rows int64
	for _, r := range o.Categories {
		rows += r.Spent.Cents
	}
	if rows != sum {
		t.Fatalf("row spent %d != transaction sum %d", rows, sum)
	}

	if o.TotalBudget.Cents != 170000 {
		t.Fatalf("total budget = %d", o.TotalBudget.Cents)
	}
	if o.Unallocated.Cents != 170000-160000 {
		t.Fatalf("unallocated = %d", o.Unallocated.Cents)
	}
	if o.SpentPercent != 76 {
		t.Fatalf("spent percent = %d", o.SpentPercent)
	}
	if len(o.Categories) != 3 || o.Categories[0].Name != "Empty" {
		t.Fatalf("rows not in name order: %+v", o.Categories)
	}
}

func TestOverviewEmptyTree(t *testing.T) {
	o := Tree{}.Overview()
	if o.SpentPercent != 0 || o.TotalSpent.Cents != 0 || len(o.Categories) != 0 {
		t.Fatalf("unexpected overview: %+v", o)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	tree := sampleTree()
	cp := tree.Clone()
	cp["Food"].Items[0].Transactions[0].Amount = Money{Cents: 1}
	if tree["Food"].Items[0].Transactions[0].Amount.Cents != 4250 {
		t.Fatal("clone aliases transactions")
	}
}

func TestFindHelpers(t *testing.T) {
	tree := sampleTree()
	c, s, ok := tree.FindSubcategory("20")
	if !ok || c.Name != "Home" || s.Name != "Rent" {
		t.Fatalf("FindSubcategory: %v %v %v", c.Name, s.Name, ok)
	}
	if _, _, ok := tree.FindSubcategory("nope"); ok {
		t.Fatal("expected miss")
	}
	if c, ok := tree.FindCategory("1"); !ok || c.Name != "Food" {
		t.Fatal("FindCategory failed")
	}
}
