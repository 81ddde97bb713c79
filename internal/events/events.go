// Package events describes committed mutations so other systems can follow
// what happened to a budget without polling the API.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Mutation kinds.
const (
	KindCreateBudget      = "create_budget"
	KindRenameBudget      = "rename_budget"
	KindDeleteBudget      = "delete_budget"
	KindInviteMember      = "invite_member"
	KindAcceptInvitation  = "accept_invitation"
	KindCreateCategory    = "create_category"
	KindEditCategory      = "edit_category"
	KindDeleteCategory    = "delete_category"
	KindCreateSubcategory = "create_subcategory"
	KindUpdateSubcategory = "update_subcategory"
	KindDeleteSubcategory = "delete_subcategory"
	KindCreateTransaction = "create_transaction"
	KindUpdateTransaction = "update_transaction"
	KindDeleteTransaction = "delete_transaction"
	KindApplyTemplate     = "apply_template"
)

// AllKinds lists every mutation kind, budget-level first.
func AllKinds() []string {
	return []string{
		KindCreateBudget, KindRenameBudget, KindDeleteBudget,
		KindInviteMember, KindAcceptInvitation,
		KindCreateCategory, KindEditCategory, KindDeleteCategory,
		KindCreateSubcategory, KindUpdateSubcategory, KindDeleteSubcategory,
		KindCreateTransaction, KindUpdateTransaction, KindDeleteTransaction,
		KindApplyTemplate,
	}
}

// Mutation is emitted after the server accepted a state change.
type Mutation struct {
	Kind      string    `json:"kind"`
	BudgetID  string    `json:"budget_id"`
	TargetID  string    `json:"target_id,omitempty"`
	Year      int       `json:"year,omitempty"`
	Month     int       `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToJSON converts the event to JSON bytes
func (m Mutation) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MutationFromJSON decodes an event published by a Sink.
func MutationFromJSON(data []byte) (Mutation, error) {
	var m Mutation
	err := json.Unmarshal(data, &m)
	return m, err
}

// Sink receives committed mutations. Implementations must not block for long:
// the session calls Publish inline after every successful command.
type Sink interface {
	Publish(ctx context.Context, m Mutation) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Mutation) error { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Mutation
}

func (r *Recorder) Publish(_ context.Context, m Mutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, m)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Mutation(nil), r.events...)
}

// Kinds lists the Kind of every recorded event in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}
