package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"simplebudget/internal/core"
)

func TestStaticLoginLogout(t *testing.T) {
	ctx := context.Background()
	p := NewStatic("secret", "alice", "alice@example.com", nil)

	var seen []*core.Identity
	cancel := p.OnChange(func(who *core.Identity) { seen = append(seen, who) })
	defer cancel()

	_, err := p.Token(ctx)
	assert.ErrorIs(t, err, ErrSignedOut)
	assert.Nil(t, p.CurrentUser())

	who, err := p.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", who.ID)

	tok, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret", tok)

	require.NoError(t, p.Logout(ctx))
	assert.Nil(t, p.CurrentUser())
	_, err = p.Token(ctx)
	assert.ErrorIs(t, err, ErrSignedOut)

	require.Len(t, seen, 2)
	assert.Equal(t, "alice", seen[0].ID)
	assert.Nil(t, seen[1])
}

func TestStaticRequiresTokenAndUser(t *testing.T) {
	_, err := NewStatic("", "alice", "", nil).Login(context.Background())
	assert.ErrorIs(t, err, ErrSignedOut)

	_, err = NewStatic("secret", "", "", nil).Login(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)

	who, err := NewStatic("secret", "", "bob@example.com", nil).Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", who.ID)
}

func TestTokenFileMissingIsSignedOut(t *testing.T) {
	p := NewTokenFile(OAuthConfig{TokenFile: filepath.Join(t.TempDir(), "token.json"), UserID: "alice"}, nil)
	_, err := p.Login(context.Background())
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestTokenFileServesValidToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, WriteToken(path, &oauth2.Token{
		AccessToken: "valid",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	p := NewTokenFile(OAuthConfig{TokenFile: path, UserID: "alice"}, nil)
	who, err := p.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", who.ID)

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "valid", tok)
}

func TestTokenFileRefreshesAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"bearer","expires_in":3600,"refresh_token":"r2"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, WriteToken(path, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	p := NewTokenFile(OAuthConfig{
		TokenFile: path,
		ClientID:  "client",
		TokenURL:  srv.URL,
		UserEmail: "alice@example.com",
	}, nil)
	_, err := p.Login(context.Background())
	require.NoError(t, err)

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)

	saved, err := ReadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "r2", saved.RefreshToken)
}

func TestTokenFileLogoutRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, WriteToken(path, &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}))

	p := NewTokenFile(OAuthConfig{TokenFile: path, UserID: "alice"}, nil)
	_, err := p.Login(context.Background())
	require.NoError(t, err)

	last := &core.Identity{}
	p.OnChange(func(who *core.Identity) { last = who })

	require.NoError(t, p.Logout(context.Background()))
	assert.Nil(t, last)
	assert.Nil(t, p.CurrentUser())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// A second logout with no file still succeeds.
	require.NoError(t, p.Logout(context.Background()))
}
