package session

import (
	"simplebudget/internal/core"
)

// OperationKind names a fine-grained in-flight action. The value stored
// against it in State.Operations is the id of the entity being acted on.
type OperationKind string

const (
	OpAddingTransaction   OperationKind = "addingTransaction"
	OpUpdatingTransaction OperationKind = "updatingTransaction"
	OpDeletingTransaction OperationKind = "deletingTransaction"
	OpDeletingSubcategory OperationKind = "deletingSubcategory"
	OpDeletingCategory    OperationKind = "deletingCategory"
	OpDeletingBudget      OperationKind = "deletingBudget"
	OpApplyingTemplate    OperationKind = "applyingTemplate"
)

// ModalKind identifies which dialog is open.
type ModalKind string

const (
	ModalCreateCategory    ModalKind = "createCategory"
	ModalEditCategory      ModalKind = "editCategory"
	ModalCreateSubcategory ModalKind = "createSubcategory"
	ModalEditSubcategory   ModalKind = "editSubcategory"
	ModalCreateTransaction ModalKind = "createTransaction"
	ModalEditTransaction   ModalKind = "editTransaction"
	ModalCreateBudget      ModalKind = "createBudget"
	ModalInvite            ModalKind = "invite"
	ModalTemplates         ModalKind = "templates"
)

// Modal is pure UI state: which dialog is open and what it was opened for.
type Modal struct {
	Open    bool
	Kind    ModalKind
	Payload any
}

// Scope is the (budget, period) pair every category read and write is
// keyed by.
type Scope struct {
	BudgetID string
	Period   core.Period
}

// State is a snapshot of the session. Values handed out by Store are deep
// copies; mutating them has no effect on the store.
type State struct {
	Identity       *core.Identity
	Budgets        []core.Budget
	ActiveBudgetID string
	Period         core.Period
	Categories     core.Tree
	IsLoading      bool
	Operations     map[OperationKind]string
	Expanded       map[string]bool
	Modal          Modal
	Error          string
}

// Scope returns the state's current scope.
func (s State) Scope() Scope {
	return Scope{BudgetID: s.ActiveBudgetID, Period: s.Period}
}

// ActiveBudget returns the budget currently selected, if any.
func (s State) ActiveBudget() (core.Budget, bool) {
	return findBudget(s.Budgets, s.ActiveBudgetID)
}

// NeedsOnboarding is true when a signed-in user has no budgets at all.
func (s State) NeedsOnboarding() bool {
	return s.Identity != nil && len(s.Budgets) == 0 && !s.IsLoading
}

// Busy reports whether the given operation is in flight for id.
func (s State) Busy(kind OperationKind, id string) bool {
	v, ok := s.Operations[kind]
	return ok && v == id
}

func (s State) clone() State {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	out.Budgets = append([]core.Budget{}, s.Budgets...)
	out.Categories = s.Categories.Clone()
	out.Operations = make(map[OperationKind]string, len(s.Operations))
	for k, v := range s.Operations {
		out.Operations[k] = v
	}
	out.Expanded = make(map[string]bool, len(s.Expanded))
	for k, v := range s.Expanded {
		out.Expanded[k] = v
	}
	return out
}

func emptyState() State {
	return State{
		Budgets:    []core.Budget{},
		Categories: core.Tree{},
		Operations: map[OperationKind]string{},
		Expanded:   map[string]bool{},
	}
}

func findBudget(budgets []core.Budget, id string) (core.Budget, bool) {
	if id == "" {
		return core.Budget{}, false
	}
	for _, b := range budgets {
		if b.ID == id {
			return b, true
		}
	}
	return core.Budget{}, false
}
