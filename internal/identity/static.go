package identity

import (
	"context"
	"sync"

	"simplebudget/internal/core"
	"simplebudget/internal/log"
)

// Static serves a fixed access token, typically from ACCESS_TOKEN.
type Static struct {
	token  string
	id     string
	email  string
	logger *log.Logger

	mu      sync.RWMutex
	current *core.Identity
	signed  bool
	subs    listeners
}

var _ Provider = (*Static)(nil)

func NewStatic(token, id, email string, logger *log.Logger) *Static {
	if logger == nil {
		logger = log.Discard()
	}
	return &Static{
		token:  token,
		id:     id,
		email:  email,
		logger: logger.WithComponent(log.ComponentIdentity),
	}
}

func (s *Static) Login(ctx context.Context) (*core.Identity, error) {
	if s.token == "" {
		return nil, ErrSignedOut
	}
	who, err := identityFrom(s.id, s.email)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = who
	s.signed = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Signed in", "user_id", who.ID)
	s.subs.emit(who)
	return s.CurrentUser(), nil
}

func (s *Static) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.signed = false
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Signed out")
	s.subs.emit(nil)
	return nil
}

func (s *Static) CurrentUser() *core.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

func (s *Static) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.signed {
		return "", ErrSignedOut
	}
	return s.token, nil
}

func (s *Static) OnChange(fn func(*core.Identity)) func() {
	return s.subs.add(fn)
}
