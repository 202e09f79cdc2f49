package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// CallbackPort is the port the local callback server listens on. The
	// redirect URL registered with the Strava application must match.
	CallbackPort = 8917

	flowTimeout = 5 * time.Minute
)

// Result is the outcome of a completed browser authorization.
type Result struct {
	Token     *oauth2.Token
	AthleteID int64
}

// Authorize runs the browser OAuth flow: it starts a one-shot local callback
// server, prints the authorization URL, waits for the redirect, and exchanges
// the code for a token.
func Authorize(ctx context.Context, cfg *oauth2.Config) (*Result, error) {
	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			errCh <- fmt.Errorf("oauth state mismatch")
			http.Error(w, "State mismatch", http.StatusBadRequest)
		case q.Get("error") != "":
			errCh <- fmt.Errorf("authorization denied: %s", q.Get("error"))
			http.Error(w, "Authorization failed", http.StatusBadRequest)
		case q.Get("code") == "":
			errCh <- fmt.Errorf("callback without authorization code")
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, successPage)
			codeCh <- q.Get("code")
		}
	})

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", CallbackPort))
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(sctx)
	}()

	fmt.Println()
	fmt.Println("To connect your Strava account, open this URL in your browser:")
	fmt.Println()
	fmt.Printf("  %s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	fmt.Println()
	fmt.Println("Waiting for authorization...")

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(flowTimeout):
		return nil, fmt.Errorf("authorization timed out after %v", flowTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	return &Result{Token: token, AthleteID: AthleteID(token)}, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>Connected</title></head>
<body style="font-family: system-ui; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0;">
<div style="text-align: center;">
<h1 style="color: #FC4C02;">Connected!</h1>
<p>Strava is linked. You can close this window and return to the terminal.</p>
</div>
</body>
</html>`
