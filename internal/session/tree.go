package session

import (
	"context"
	"fmt"
	"strings"

	"simplebudget/internal/core"
	"simplebudget/internal/events"
)

// treeMutation is one scoped write followed by a reload of the tree.
type treeMutation struct {
	kind      string
	key       string
	operation OperationKind
	target    string
	silent    bool
	call      func(ctx context.Context, scope Scope) (string, error)
}

// mutateTree runs m against the active scope. The scope is captured when the
// command is issued; the reload afterwards reads whatever scope is current
// then. On failure the tree is untouched and the error is recorded.
func (s *Store) mutateTree(ctx context.Context, m treeMutation) error {
	scope, err := s.activeScope()
	if err != nil {
		s.fail(err)
		return err
	}

	key := fmt.Sprintf("%s:%s:%d-%d:%s", m.kind, scope.BudgetID, scope.Period.Year, scope.Period.Month, m.key)
	return s.guard(key, func() error {
		if m.operation != "" {
			s.setOperation(m.operation, m.target)
			defer s.clearOperation(m.operation, m.target)
		}

		target, err := m.call(ctx, scope)
		if target == "" {
			target = m.target
		}
		s.record(ctx, m.kind, scope, target, err)
		if err != nil {
			s.fail(err)
			return err
		}
		// A failed re-read empties the tree and records the error; the
		// write itself has already been committed.
		_ = s.reload(ctx, m.silent)
		return nil
	})
}

// categoryNameTaken reports whether a category other than exceptID already
// uses name in the loaded tree. The tree is keyed by name, so a second
// category with the same name would hide the first.
func (s *Store) categoryNameTaken(name, exceptID string) error {
	s.mu.Lock()
	c, ok := s.state.Categories[name]
	s.mu.Unlock()
	if ok && c.ID != exceptID {
		return fmt.Errorf("%w: %q", core.ErrDuplicateCategory, name)
	}
	return nil
}

// CreateCategory adds a category to the active budget for the selected month.
// Names must be unique within the month.
func (s *Store) CreateCategory(ctx context.Context, in core.CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		s.fail(err)
		return err
	}
	if err := s.categoryNameTaken(in.Name, ""); err != nil {
		s.fail(err)
		return err
	}
	return s.mutateTree(ctx, treeMutation{
		kind: events.KindCreateCategory,
		key:  fmt.Sprintf("%s:%d", in.Name, in.Budget.Cents),
		call: func(ctx context.Context, scope Scope) (string, error) {
			c, err := s.api.CreateCategory(ctx, scope.BudgetID, scope.Period, in)
			return c.ID, err
		},
	})
}

// EditCategory changes a category's name and budget.
func (s *Store) EditCategory(ctx context.Context, id string, in core.CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		s.fail(err)
		return err
	}
	if err := s.categoryNameTaken(in.Name, id); err != nil {
		s.fail(err)
		return err
	}
	return s.mutateTree(ctx, treeMutation{
		kind:   events.KindEditCategory,
		key:    fmt.Sprintf("%s:%s:%d", id, in.Name, in.Budget.Cents),
		target: id,
		call: func(ctx context.Context, scope Scope) (string, error) {
			return id, s.api.EditCategory(ctx, scope.BudgetID, id, in)
		},
	})
}

// DeleteCategory removes a category together with its subtree.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.mutateTree(ctx, treeMutation{
		kind:      events.KindDeleteCategory,
		key:       id,
		operation: OpDeletingCategory,
		target:    id,
		call: func(ctx context.Context, scope Scope) (string, error) {
			return id, s.api.DeleteCategory(ctx, scope.BudgetID, id)
		},
	})
}

// CreateSubcategory adds a subcategory under an existing category.
func (s *Store) CreateSubcategory(ctx context.Context, in core.SubcategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		s.fail(err)
		return err
	}
	return s.mutateTree(ctx, treeMutation{
		kind: events.KindCreateSubcategory,
		key:  fmt.Sprintf("%s:%s:%d", in.CategoryID, in.Name, in.Allotted.Cents),
		call: func(ctx context.Context, scope Scope) (string, error) {
			sub, err := s.api.CreateSubcategory(ctx, scope.BudgetID, in)
			return sub.ID, err
		},
	})
}

// UpdateSubcategory changes a subcategory's name and allotment, and moves it
// under in.CategoryID when that differs from its current parent.
func (s *Store) UpdateSubcategory(ctx context.Context, id string, in core.SubcategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		s.fail(err)
		return err
	}
	return s.mutateTree(ctx, treeMutation{
		kind:   events.KindUpdateSubcategory,
		key:    fmt.Sprintf("%s:%s:%s:%d", id, in.CategoryID, in.Name, in.Allotted.Cents),
		target: id,
		call: func(ctx context.Context, scope Scope) (string, error) {
			return id, s.api.UpdateSubcategory(ctx, scope.BudgetID, id, in)
		},
	})
}

// DeleteSubcategory removes a subcategory and its transactions.
func (s *Store) DeleteSubcategory(ctx context.Context, id string) error {
	return s.mutateTree(ctx, treeMutation{
		kind:      events.KindDeleteSubcategory,
		key:       id,
		operation: OpDeletingSubcategory,
		target:    id,
		call: func(ctx context.Context, scope Scope) (string, error) {
			return id, s.api.DeleteSubcategory(ctx, scope.BudgetID, id)
		},
	})
}

// CreateTransaction records a spend. The tree is refreshed silently, and
// the subcategory id is marked in Operations while the call is in flight.
func (s *Store) CreateTransaction(ctx context.Context, in core.TransactionInput) error {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		s.fail(err)
		return err
	}
	return s.mutateTree(ctx, treeMutation{
		kind:      events.KindCreateTransaction,
		key:       transactionKey(in),
		operation: OpAddingTransaction,
		target:    in.SubcategoryID,
		silent:    true,
		call: func(ctx context.Context, scope Scope) (string, error) {
			tx, err := s.api.CreateTransaction(ctx, scope.BudgetID, in)
			return tx.ID, err
		},
	})
}

// UpdateTransaction replaces a transaction's fields.
func (s *Store) UpdateTransaction(ctx context.Context, id string, in core.TransactionInput) error {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		s.fail(err)
		return err
	}
	return s.mutateTree(ctx, treeMutation{
		kind:      events.KindUpdateTransaction,
		key:       id + ":" + transactionKey(in),
		operation: OpUpdatingTransaction,
		target:    id,
		silent:    true,
		call: func(ctx context.Context, scope Scope) (string, error) {
			return id, s.api.UpdateTransaction(ctx, scope.BudgetID, id, in)
		},
	})
}

// DeleteTransaction removes a transaction.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.mutateTree(ctx, treeMutation{
		kind:      events.KindDeleteTransaction,
		key:       id,
		operation: OpDeletingTransaction,
		target:    id,
		silent:    true,
		call: func(ctx context.Context, scope Scope) (string, error) {
			return id, s.api.DeleteTransaction(ctx, scope.BudgetID, id)
		},
	})
}

func transactionKey(in core.TransactionInput) string {
	return fmt.Sprintf("%s:%s:%d:%s:%s", in.SubcategoryID, in.Description, in.Amount.Cents, in.Date, in.Icon)
}

// Batch runs several writes against the active scope as one command. The
// tree is reloaded once afterwards, whether fn succeeded or not, so partial
// progress is always visible.
func (s *Store) Batch(ctx context.Context, kind, key string, fn func(ctx context.Context, scope Scope, api API) error) error {
	scope, err := s.activeScope()
	if err != nil {
		s.fail(err)
		return err
	}

	flightKey := fmt.Sprintf("%s:%s:%d-%d:%s", kind, scope.BudgetID, scope.Period.Year, scope.Period.Month, key)
	return s.guard(flightKey, func() error {
		s.setOperation(OpApplyingTemplate, key)
		defer s.clearOperation(OpApplyingTemplate, key)

		err := fn(ctx, scope, s.api)
		s.record(ctx, kind, scope, key, err)
		if err != nil {
			s.fail(err)
		}
		_ = s.reload(ctx, false)
		return err
	})
}
