package api

import (
	"fmt"

	"simplebudget/internal/core"
)

// NormalizeTree turns the month-summary array into a name-keyed tree. Spent
// figures are always derived from transactions; the server's spending field
// is ignored. Two categories with the same name are an error, since one
// would hide the other.
func NormalizeTree(categories []CategoryDTO) (core.Tree, error) {
	tree := make(core.Tree, len(categories))
	for _, dto := range categories {
		c, err := dto.toCore()
		if err != nil {
			return nil, err
		}
		if prev, dup := tree[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q (ids %s and %s)", core.ErrDuplicateCategory, c.Name, prev.ID, c.ID)
		}
		tree[c.Name] = c
	}
	return tree, nil
}

func (b BudgetDTO) toCore() core.Budget {
	return core.Budget{ID: string(b.ID), Name: b.Name, MemberCount: b.MemberCount}
}

func (i InvitationDTO) toCore() core.Invitation {
	return core.Invitation{
		Token:        i.Token,
		BudgetID:     string(i.BudgetID),
		BudgetName:   i.BudgetName,
		InviteeEmail: i.InviteeEmail,
	}
}

func (c CategoryDTO) toCore() (core.Category, error) {
	out := core.Category{
		ID:     string(c.ID),
		Name:   c.Name,
		Budget: core.MoneyFromDecimal(c.Budget.Decimal),
		Items:  make([]core.Subcategory, 0, len(c.Subcategories)),
	}
	for _, s := range c.Subcategories {
		sub, err := s.toCore()
		if err != nil {
			return core.Category{}, fmt.Errorf("category %q: %w", c.Name, err)
		}
		out.Items = append(out.Items, sub)
	}
	return out, nil
}

func (s SubcategoryDTO) toCore() (core.Subcategory, error) {
	out := core.Subcategory{
		ID:           string(s.ID),
		Name:         s.Name,
		Allotted:     core.MoneyFromDecimal(s.Allotted.Decimal),
		Transactions: make([]core.Transaction, 0, len(s.Transactions)),
	}
	for _, t := range s.Transactions {
		tx, err := t.toCore(out.ID)
		if err != nil {
			return core.Subcategory{}, fmt.Errorf("subcategory %q: %w", s.Name, err)
		}
		out.Transactions = append(out.Transactions, tx)
	}
	return out, nil
}

// toCore converts a transaction; parentID fills SubcategoryID when the nested
// shape omits it.
func (t TransactionDTO) toCore(parentID string) (core.Transaction, error) {
	date, err := parseWireDate(t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	subID := string(t.SubcategoryID)
	if subID == "" {
		subID = parentID
	}
	icon := t.Icon
	if icon == "" {
		icon = core.DefaultIcon
	}
	return core.Transaction{
		ID:            string(t.ID),
		SubcategoryID: subID,
		Description:   t.Description,
		Amount:        core.MoneyFromDecimal(t.Amount.Decimal),
		Date:          date,
		Icon:          icon,
	}, nil
}

// parseWireDate accepts a plain date or a timestamp whose first ten
// characters are the date.
func parseWireDate(s string) (core.Date, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	return core.ParseDate(s)
}
