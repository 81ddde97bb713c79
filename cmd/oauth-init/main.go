// Command oauth-init runs the authorization-code flow once and stores the
// resulting token in OAUTH_TOKEN_FILE for simplebudget to refresh later.
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"simplebudget/internal/cli"
	"simplebudget/internal/identity"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}
	if cfg.OAuthClientID == "" || cfg.OAuthAuthURL == "" || cfg.OAuthTokenURL == "" {
		stdlog.Fatalf("set OAUTH_CLIENT_ID, OAUTH_AUTH_URL and OAUTH_TOKEN_URL")
	}
	outFile := cfg.OAuthTokenFile
	if outFile == "" {
		outFile = "token.json"
	}

	// Start local server for redirect_uri http://localhost:8085/callback
	// Register this URI with the OAuth client.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	oc := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: cfg.OAuthAuthURL, TokenURL: cfg.OAuthTokenURL},
		RedirectURL:  "http://localhost:" + redirectPort + "/callback",
		Scopes:       strings.Fields(os.Getenv("OAUTH_SCOPES")),
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		codeCh <- r.URL.Query().Get("code")
		go func() { time.Sleep(500 * time.Millisecond); _ = srv.Close() }()
	})
	go func() { _ = srv.ListenAndServe() }()

	url := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	fmt.Printf("Open this URL to authorize:\n%s\n", url)

	select {
	case code := <-codeCh:
		tok, err := oc.Exchange(context.Background(), code, oauth2.VerifierOption(verifier))
		if err != nil {
			stdlog.Fatalf("token exchange: %v", err)
		}
		if err := identity.WriteToken(outFile, tok); err != nil {
			stdlog.Fatalf("write token: %v", err)
		}
		fmt.Printf("Saved token to %s\n", outFile)
	case <-time.After(5 * time.Minute):
		stdlog.Fatalf("authorization timed out")
	case <-signalChan():
		stdlog.Fatalf("interrupted")
	}
}

func signalChan() <-chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	return c
}
