// Package identity provides the signed-in user and the bearer token the API
// client sends. Providers notify listeners whenever the user changes so the
// session can bootstrap or clear itself.
package identity

import (
	"context"
	"errors"
	"sync"

	"simplebudget/internal/core"
)

var (
	// ErrSignedOut is returned when a token is requested with nobody signed in.
	ErrSignedOut = errors.New("identity: signed out")
	// ErrNoIdentity is returned when credentials exist but no user id is known.
	ErrNoIdentity = errors.New("identity: no user id configured")
)

// Provider is the identity collaborator of the session.
type Provider interface {
	// Login establishes the identity and notifies listeners.
	Login(ctx context.Context) (*core.Identity, error)
	// Logout always clears local credentials, even if revoking fails.
	Logout(ctx context.Context) error
	// CurrentUser returns nil when signed out.
	CurrentUser() *core.Identity
	// Token returns a bearer token for the API.
	Token(ctx context.Context) (string, error)
	// OnChange registers fn for identity changes; the returned func unregisters it.
	OnChange(fn func(*core.Identity)) func()
}

// listeners fans identity changes out to subscribers.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(*core.Identity)
}

func (l *listeners) add(fn func(*core.Identity)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(*core.Identity))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) emit(who *core.Identity) {
	l.mu.Lock()
	fns := make([]func(*core.Identity), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		if who == nil {
			fn(nil)
			continue
		}
		cp := *who
		fn(&cp)
	}
}

func identityFrom(id, email string) (*core.Identity, error) {
	if id == "" {
		id = email
	}
	if id == "" {
		return nil, ErrNoIdentity
	}
	return &core.Identity{ID: id, Email: email}, nil
}
