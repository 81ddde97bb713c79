package session

import (
	"context"
	"strings"

	"simplebudget/internal/api"
	"simplebudget/internal/core"
	"simplebudget/internal/events"
	"simplebudget/internal/log"
)

// Bootstrap reacts to an identity change. A nil identity clears everything.
// Otherwise the budget list is loaded, the remembered budget is selected if
// it still exists (else the first one) and the tree for the current month is
// read. With zero budgets the session is left in onboarding.
func (s *Store) Bootstrap(ctx context.Context, identity *core.Identity) error {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	// Loads issued under the previous epoch never release their count.
	s.loading = 0
	if identity == nil {
		period := s.state.Period
		s.state = emptyState()
		s.state.Period = period
		s.mu.Unlock()
		s.notify()
		s.logger.InfoContext(ctx, "Session cleared")
		return nil
	}
	id := *identity
	s.state.Identity = &id
	if s.state.Period.IsZero() {
		s.state.Period = core.PeriodOf(s.now())
	}
	s.loading++
	s.state.IsLoading = true
	s.mu.Unlock()
	s.notify()

	budgets, err := s.api.ListBudgets(ctx)

	preferred := ""
	if err == nil && s.prefs != nil {
		var perr error
		preferred, perr = s.prefs.PreferredBudgetID(ctx)
		if perr != nil {
			s.logger.WarnContext(ctx, "Failed to read preferred budget", log.FieldError, perr)
		}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		// Signed out or re-bootstrapped while the list was loading.
		s.mu.Unlock()
		return nil
	}
	s.endLoadingLocked()
	if err != nil {
		s.state.Budgets = []core.Budget{}
		s.state.ActiveBudgetID = ""
		s.state.Categories = core.Tree{}
		s.state.Error = api.Message(err)
		s.mu.Unlock()
		s.notify()
		s.logger.ErrorContext(ctx, "Failed to load budgets", log.FieldError, err)
		return err
	}
	s.state.Budgets = budgets
	active := ""
	if _, ok := findBudget(budgets, preferred); ok {
		active = preferred
	} else if len(budgets) > 0 {
		active = budgets[0].ID
	}
	s.state.ActiveBudgetID = active
	if active == "" {
		s.state.Categories = core.Tree{}
	}
	s.mu.Unlock()
	s.notify()

	s.logger.InfoContext(ctx, "Session started",
		"user_id", id.ID,
		"budgets", len(budgets),
		log.FieldBudgetID, active)

	if active == "" {
		return nil
	}
	if active != preferred {
		s.rememberBudget(ctx, active)
	}
	return s.reload(ctx, false)
}

// SwitchBudget selects another budget the user belongs to and reloads.
// Unknown ids leave the state untouched.
func (s *Store) SwitchBudget(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := findBudget(s.state.Budgets, id)
	s.mu.Unlock()
	if !ok {
		return ErrUnknownBudget
	}
	return s.activate(ctx, id)
}

// activate makes id the active budget, remembers it and reloads.
func (s *Store) activate(ctx context.Context, id string) error {
	s.update(func(st *State) {
		st.ActiveBudgetID = id
	})
	s.rememberBudget(ctx, id)
	return s.reload(ctx, false)
}

func (s *Store) rememberBudget(ctx context.Context, id string) {
	if s.prefs == nil {
		return
	}
	var err error
	if id == "" {
		err = s.prefs.ClearPreferredBudgetID(ctx)
	} else {
		err = s.prefs.SetPreferredBudgetID(ctx, id)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to persist preferred budget",
			log.FieldBudgetID, id,
			log.FieldError, err)
	}
}

// refreshBudgets re-reads the budget list. When the read fails, fallback is
// applied to the local list so the session still reflects the committed
// mutation.
func (s *Store) refreshBudgets(ctx context.Context, fallback func([]core.Budget) []core.Budget) {
	budgets, err := s.api.ListBudgets(ctx)
	s.update(func(st *State) {
		if err != nil {
			st.Budgets = fallback(append([]core.Budget{}, st.Budgets...))
			return
		}
		st.Budgets = budgets
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to refresh budget list", log.FieldError, err)
	}
}

// CreateBudget creates a budget, refreshes the list and switches to it.
func (s *Store) CreateBudget(ctx context.Context, name string) (core.Budget, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateBudgetName(name); err != nil {
		s.fail(err)
		return core.Budget{}, err
	}

	v, err, _ := s.flight.Do("createBudget:"+name, func() (any, error) {
		b, err := s.api.CreateBudget(ctx, name)
		s.record(ctx, events.KindCreateBudget, Scope{BudgetID: b.ID}, b.ID, err)
		if err != nil {
			s.fail(err)
			return core.Budget{}, err
		}
		s.refreshBudgets(ctx, func(list []core.Budget) []core.Budget {
			return append(list, b)
		})
		_ = s.activate(ctx, b.ID)
		return b, nil
	})
	b, _ := v.(core.Budget)
	return b, err
}

// RenameBudget renames a budget and refreshes the list.
func (s *Store) RenameBudget(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if err := core.ValidateBudgetName(name); err != nil {
		s.fail(err)
		return err
	}

	return s.guard("renameBudget:"+id+":"+name, func() error {
		_, err := s.api.RenameBudget(ctx, id, name)
		s.record(ctx, events.KindRenameBudget, Scope{BudgetID: id}, id, err)
		if err != nil {
			s.fail(err)
			return err
		}
		s.refreshBudgets(ctx, func(list []core.Budget) []core.Budget {
			for i := range list {
				if list[i].ID == id {
					list[i].Name = name
				}
			}
			return list
		})
		return nil
	})
}

// DeleteBudget removes a budget. If it was active the session falls back to
// the first remaining budget, or to no budget and an empty tree.
func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	return s.guard("deleteBudget:"+id, func() error {
		s.setOperation(OpDeletingBudget, id)
		defer s.clearOperation(OpDeletingBudget, id)

		err := s.api.DeleteBudget(ctx, id)
		s.record(ctx, events.KindDeleteBudget, Scope{BudgetID: id}, id, err)
		if err != nil {
			s.fail(err)
			return err
		}
		s.refreshBudgets(ctx, func(list []core.Budget) []core.Budget {
			return list
		})

		s.mu.Lock()
		remaining := make([]core.Budget, 0, len(s.state.Budgets))
		for _, b := range s.state.Budgets {
			if b.ID != id {
				remaining = append(remaining, b)
			}
		}
		s.state.Budgets = remaining
		wasActive := s.state.ActiveBudgetID == id
		next := ""
		if wasActive && len(remaining) > 0 {
			next = remaining[0].ID
		}
		if wasActive && next == "" {
			s.state.ActiveBudgetID = ""
			s.state.Categories = core.Tree{}
		}
		s.mu.Unlock()
		s.notify()

		if !wasActive {
			return nil
		}
		if next == "" {
			s.rememberBudget(ctx, "")
			return nil
		}
		_ = s.activate(ctx, next)
		return nil
	})
}

// InviteMember creates an invitation for the active budget. The returned
// invitation carries the shareable link.
func (s *Store) InviteMember(ctx context.Context, email string) (core.Invitation, error) {
	email = strings.TrimSpace(email)
	if err := core.ValidateEmail(email); err != nil {
		s.fail(err)
		return core.Invitation{}, err
	}
	scope, err := s.activeScope()
	if err != nil {
		s.fail(err)
		return core.Invitation{}, err
	}

	v, err, _ := s.flight.Do("invite:"+scope.BudgetID+":"+email, func() (any, error) {
		inv, err := s.api.CreateInvitation(ctx, scope.BudgetID, email)
		s.record(ctx, events.KindInviteMember, Scope{BudgetID: scope.BudgetID}, inv.Token, err)
		if err != nil {
			s.fail(err)
			return core.Invitation{}, err
		}
		inv.Link = s.InviteLink(inv.Token)
		return inv, nil
	})
	inv, _ := v.(core.Invitation)
	return inv, err
}

// InviteLink builds the shareable URL for a token.
func (s *Store) InviteLink(token string) string {
	return strings.TrimRight(s.inviteBaseURL, "/") + "/invite/" + token
}

// ValidateInvitation looks an invitation up without accepting it.
func (s *Store) ValidateInvitation(ctx context.Context, token string) (core.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.Invitation{}, core.ErrEmptyInvitationCode
	}
	inv, err := s.api.ValidateInvitation(ctx, token)
	if err != nil {
		return core.Invitation{}, err
	}
	inv.Link = s.InviteLink(inv.Token)
	return inv, nil
}

// AcceptInvitation joins the invited budget, refreshes the list and switches
// to it.
func (s *Store) AcceptInvitation(ctx context.Context, token string) (core.Budget, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.fail(core.ErrEmptyInvitationCode)
		return core.Budget{}, core.ErrEmptyInvitationCode
	}

	v, err, _ := s.flight.Do("acceptInvitation:"+token, func() (any, error) {
		b, err := s.api.AcceptInvitation(ctx, token)
		s.record(ctx, events.KindAcceptInvitation, Scope{BudgetID: b.ID}, token, err)
		if err != nil {
			s.fail(err)
			return core.Budget{}, err
		}
		s.refreshBudgets(ctx, func(list []core.Budget) []core.Budget {
			if _, ok := findBudget(list, b.ID); !ok {
				list = append(list, b)
			}
			return list
		})
		_ = s.activate(ctx, b.ID)
		return b, nil
	})
	b, _ := v.(core.Budget)
	return b, err
}

// Months lists the selectable periods, current month first.
func (s *Store) Months() []core.Period {
	return core.TrailingPeriods(s.now(), monthWindow)
}

// SetPeriod selects a reporting month and reloads.
func (s *Store) SetPeriod(ctx context.Context, p core.Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.update(func(st *State) {
		st.Period = p
	})
	return s.reload(ctx, false)
}

// SetPeriodLabel is SetPeriod for a "<Month> <Year>" label.
func (s *Store) SetPeriodLabel(ctx context.Context, label string) error {
	p, err := core.ParsePeriod(label)
	if err != nil {
		return err
	}
	return s.SetPeriod(ctx, p)
}

// PreviousMonth moves one month back within the picker window. It reports
// false without reloading at the oldest month.
func (s *Store) PreviousMonth(ctx context.Context) (bool, error) {
	months := s.Months()
	idx := s.periodIndex(months)
	if idx < 0 || idx >= len(months)-1 {
		return false, nil
	}
	return true, s.SetPeriod(ctx, months[idx+1])
}

// NextMonth moves one month forward, never past the current month.
func (s *Store) NextMonth(ctx context.Context) (bool, error) {
	months := s.Months()
	idx := s.periodIndex(months)
	if idx <= 0 {
		return false, nil
	}
	return true, s.SetPeriod(ctx, months[idx-1])
}

// CurrentMonth jumps back to the month containing now.
func (s *Store) CurrentMonth(ctx context.Context) error {
	return s.SetPeriod(ctx, core.PeriodOf(s.now()))
}

func (s *Store) periodIndex(months []core.Period) int {
	current := s.Snapshot().Period
	for i, p := range months {
		if p == current {
			return i
		}
	}
	return -1
}
