package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"

	"simplebudget/internal/core"
	"simplebudget/internal/log"
)

// OAuthConfig describes an OAuth2 client whose token was saved by oauth-init.
type OAuthConfig struct {
	TokenFile    string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserID       string
	UserEmail    string
}

func (c OAuthConfig) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		},
	}
}

// TokenFile serves access tokens from a saved OAuth2 token, refreshing it
// when it expires and writing the refreshed token back to the file.
type TokenFile struct {
	cfg    OAuthConfig
	logger *log.Logger

	mu      sync.Mutex
	source  oauth2.TokenSource
	last    string
	current *core.Identity
	subs    listeners
}

var _ Provider = (*TokenFile)(nil)

func NewTokenFile(cfg OAuthConfig, logger *log.Logger) *TokenFile {
	if logger == nil {
		logger = log.Discard()
	}
	return &TokenFile{cfg: cfg, logger: logger.WithComponent(log.ComponentIdentity)}
}

// ReadToken loads a token written by oauth-init.
func ReadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &tok, nil
}

// WriteToken stores a token with owner-only permissions.
func WriteToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

func (p *TokenFile) Login(ctx context.Context) (*core.Identity, error) {
	tok, err := ReadToken(p.cfg.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSignedOut
	}
	if err != nil {
		return nil, err
	}
	who, err := identityFrom(p.cfg.UserID, p.cfg.UserEmail)
	if err != nil {
		return nil, err
	}

	// The source outlives ctx, so refreshes use a background context.
	src := oauth2.ReuseTokenSource(tok, p.cfg.oauth2Config().TokenSource(context.Background(), tok))

	p.mu.Lock()
	p.source = src
	p.last = tok.AccessToken
	p.current = who
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "Signed in", "user_id", who.ID, "token_file", p.cfg.TokenFile)
	p.subs.emit(who)
	return who, nil
}

// Logout forgets the token and removes the token file. Local state is
// cleared even when the file cannot be removed.
func (p *TokenFile) Logout(ctx context.Context) error {
	p.mu.Lock()
	p.source = nil
	p.last = ""
	p.current = nil
	p.mu.Unlock()

	p.subs.emit(nil)

	if err := os.Remove(p.cfg.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.WarnContext(ctx, "Failed to remove token file", log.FieldError, err)
		return err
	}
	p.logger.InfoContext(ctx, "Signed out")
	return nil
}

func (p *TokenFile) CurrentUser() *core.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	cp := *p.current
	return &cp
}

func (p *TokenFile) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	src := p.source
	p.mu.Unlock()
	if src == nil {
		return "", ErrSignedOut
	}

	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	p.mu.Lock()
	refreshed := tok.AccessToken != p.last
	p.last = tok.AccessToken
	p.mu.Unlock()

	if refreshed {
		if err := WriteToken(p.cfg.TokenFile, tok); err != nil {
			p.logger.WarnContext(ctx, "Failed to persist refreshed token", log.FieldError, err)
		}
	}
	return tok.AccessToken, nil
}

func (p *TokenFile) OnChange(fn func(*core.Identity)) func() {
	return p.subs.add(fn)
}
