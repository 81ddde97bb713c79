package session

import (
	"context"
	"strconv"
	"sync"

	"simplebudget/internal/api"
	"simplebudget/internal/core"
)

// fakeAPI is an in-memory API whose calls can be gated and failed on demand.
type fakeAPI struct {
	mu      sync.Mutex
	nextID  int
	budgets []core.Budget
	trees   map[Scope]core.Tree
	invites map[string]core.Invitation
	calls   map[string]int
	errs    map[string]error

	// gates block a call until the channel is closed. fetch gates are keyed
	// by budget id, the others by method name.
	fetchGates map[string]chan struct{}
	gates      map[string]chan struct{}
	started    chan string
}

func newFakeAPI(budgets ...core.Budget) *fakeAPI {
	return &fakeAPI{
		nextID:     100,
		budgets:    budgets,
		trees:      make(map[Scope]core.Tree),
		invites:    make(map[string]core.Invitation),
		calls:      make(map[string]int),
		errs:       make(map[string]error),
		fetchGates: make(map[string]chan struct{}),
		gates:      make(map[string]chan struct{}),
		started:    make(chan string, 64),
	}
}

func (f *fakeAPI) enter(method string) error {
	f.mu.Lock()
	f.calls[method]++
	gate := f.gates[method]
	err := f.errs[method]
	f.mu.Unlock()

	select {
	case f.started <- method:
	default:
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeAPI) id() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) failWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

// drainStarted forgets start signals from earlier calls.
func (f *fakeAPI) drainStarted() {
	for {
		select {
		case <-f.started:
		default:
			return
		}
	}
}

func (f *fakeAPI) gate(method string) chan struct{} {
	f.drainStarted()
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[method] = ch
	return ch
}

func (f *fakeAPI) gateFetch(budgetID string) chan struct{} {
	f.drainStarted()
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.fetchGates[budgetID] = ch
	return ch
}

func (f *fakeAPI) setTree(scope Scope, tree core.Tree) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trees[scope] = tree
}

func (f *fakeAPI) ListBudgets(context.Context) ([]core.Budget, error) {
	if err := f.enter("ListBudgets"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Budget{}, f.budgets...), nil
}

func (f *fakeAPI) CreateBudget(_ context.Context, name string) (core.Budget, error) {
	if err := f.enter("CreateBudget"); err != nil {
		return core.Budget{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b := core.Budget{ID: f.id(), Name: name, MemberCount: 1}
	f.budgets = append(f.budgets, b)
	return b, nil
}

func (f *fakeAPI) RenameBudget(_ context.Context, id, name string) (core.Budget, error) {
	if err := f.enter("RenameBudget"); err != nil {
		return core.Budget{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.budgets {
		if f.budgets[i].ID == id {
			f.budgets[i].Name = name
			return f.budgets[i], nil
		}
	}
	return core.Budget{}, &api.Error{Status: 404, Detail: "Budget not found"}
}

func (f *fakeAPI) DeleteBudget(_ context.Context, id string) error {
	if err := f.enter("DeleteBudget"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.budgets[:0]
	for _, b := range f.budgets {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	f.budgets = kept
	return nil
}

func (f *fakeAPI) CreateInvitation(_ context.Context, budgetID, email string) (core.Invitation, error) {
	if err := f.enter("CreateInvitation"); err != nil {
		return core.Invitation{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := core.Invitation{Token: "tok-" + f.id(), BudgetID: budgetID, InviteeEmail: email}
	for _, b := range f.budgets {
		if b.ID == budgetID {
			inv.BudgetName = b.Name
		}
	}
	f.invites[inv.Token] = inv
	return inv, nil
}

func (f *fakeAPI) ValidateInvitation(_ context.Context, token string) (core.Invitation, error) {
	if err := f.enter("ValidateInvitation"); err != nil {
		return core.Invitation{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invites[token]
	if !ok {
		return core.Invitation{}, &api.Error{Status: 404, Detail: "Invitation not found"}
	}
	return inv, nil
}

func (f *fakeAPI) AcceptInvitation(_ context.Context, token string) (core.Budget, error) {
	if err := f.enter("AcceptInvitation"); err != nil {
		return core.Budget{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invites[token]
	if !ok {
		return core.Budget{}, &api.Error{Status: 404, Detail: "Invitation not found"}
	}
	delete(f.invites, token)
	b := core.Budget{ID: inv.BudgetID, Name: inv.BudgetName, MemberCount: 2}
	f.budgets = append(f.budgets, b)
	return b, nil
}

func (f *fakeAPI) FetchMonth(_ context.Context, budgetID string, p core.Period) (core.Tree, error) {
	f.mu.Lock()
	f.calls["FetchMonth"]++
	err := f.errs["FetchMonth"]
	// Capture the tree at issue time so a delayed response carries old data.
	tree := f.trees[Scope{BudgetID: budgetID, Period: p}].Clone()
	gate := f.fetchGates[budgetID]
	f.mu.Unlock()

	select {
	case f.started <- "FetchMonth:" + budgetID:
	default:
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (f *fakeAPI) CreateCategory(_ context.Context, budgetID string, p core.Period, in core.CategoryInput) (core.Category, error) {
	if err := f.enter("CreateCategory"); err != nil {
		return core.Category{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	scope := Scope{BudgetID: budgetID, Period: p}
	tree := f.trees[scope]
	if tree == nil {
		tree = core.Tree{}
		f.trees[scope] = tree
	}
	c := core.Category{ID: f.id(), Name: in.Name, Budget: in.Budget}
	tree[in.Name] = c
	return c, nil
}

func (f *fakeAPI) EditCategory(_ context.Context, budgetID, id string, in core.CategoryInput) error {
	if err := f.enter("EditCategory"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for scope, tree := range f.trees {
		if scope.BudgetID != budgetID {
			continue
		}
		if c, ok := tree.FindCategory(id); ok {
			delete(tree, c.Name)
			c.Name, c.Budget = in.Name, in.Budget
			tree[c.Name] = c
		}
	}
	return nil
}

func (f *fakeAPI) DeleteCategory(_ context.Context, budgetID, id string) error {
	if err := f.enter("DeleteCategory"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for scope, tree := range f.trees {
		if scope.BudgetID != budgetID {
			continue
		}
		if c, ok := tree.FindCategory(id); ok {
			delete(tree, c.Name)
		}
	}
	return nil
}

func (f *fakeAPI) CreateSubcategory(_ context.Context, budgetID string, in core.SubcategoryInput) (core.Subcategory, error) {
	if err := f.enter("CreateSubcategory"); err != nil {
		return core.Subcategory{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for scope, tree := range f.trees {
		if scope.BudgetID != budgetID {
			continue
		}
		if c, ok := tree.FindCategory(in.CategoryID); ok {
			sub := core.Subcategory{ID: f.id(), Name: in.Name, Allotted: in.Allotted}
			c.Items = append(c.Items, sub)
			tree[c.Name] = c
			return sub, nil
		}
	}
	return core.Subcategory{}, &api.Error{Status: 404, Detail: "Category not found"}
}

func (f *fakeAPI) UpdateSubcategory(_ context.Context, _, id string, in core.SubcategoryInput) error {
	if err := f.enter("UpdateSubcategory"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editSub(id, func(sub *core.Subcategory) {
		sub.Name, sub.Allotted = in.Name, in.Allotted
	})
	return nil
}

func (f *fakeAPI) DeleteSubcategory(_ context.Context, _, id string) error {
	if err := f.enter("DeleteSubcategory"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tree := range f.trees {
		for name, c := range tree {
			kept := c.Items[:0]
			for _, sub := range c.Items {
				if sub.ID != id {
					kept = append(kept, sub)
				}
			}
			c.Items = kept
			tree[name] = c
		}
	}
	return nil
}

func (f *fakeAPI) CreateTransaction(_ context.Context, _ string, in core.TransactionInput) (core.Transaction, error) {
	if err := f.enter("CreateTransaction"); err != nil {
		return core.Transaction{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := core.Transaction{
		ID:            f.id(),
		SubcategoryID: in.SubcategoryID,
		Description:   in.Description,
		Amount:        in.Amount,
		Date:          in.Date,
		Icon:          in.Icon,
	}
	f.editSub(in.SubcategoryID, func(sub *core.Subcategory) {
		sub.Transactions = append(sub.Transactions, tx)
	})
	return tx, nil
}

func (f *fakeAPI) UpdateTransaction(_ context.Context, _, id string, in core.TransactionInput) error {
	if err := f.enter("UpdateTransaction"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editSub(in.SubcategoryID, func(sub *core.Subcategory) {
		for i := range sub.Transactions {
			if sub.Transactions[i].ID == id {
				sub.Transactions[i].Description = in.Description
				sub.Transactions[i].Amount = in.Amount
			}
		}
	})
	return nil
}

func (f *fakeAPI) DeleteTransaction(_ context.Context, _, id string) error {
	if err := f.enter("DeleteTransaction"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tree := range f.trees {
		for name, c := range tree {
			for i := range c.Items {
				kept := c.Items[i].Transactions[:0]
				for _, tx := range c.Items[i].Transactions {
					if tx.ID != id {
						kept = append(kept, tx)
					}
				}
				c.Items[i].Transactions = kept
			}
			tree[name] = c
		}
	}
	return nil
}

// editSub must be called with f.mu held.
func (f *fakeAPI) editSub(id string, fn func(*core.Subcategory)) {
	for _, tree := range f.trees {
		for name, c := range tree {
			for i := range c.Items {
				if c.Items[i].ID == id {
					fn(&c.Items[i])
					tree[name] = c
				}
			}
		}
	}
}
