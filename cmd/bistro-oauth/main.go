// Command bistro-oauth runs the installed-app OAuth flow once and stores the
// user token the sheet sync worker reads from GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"

	"bistro/internal/cli"
	"bistro/internal/log"
	gsheet "bistro/internal/sheets/google"
)

const authTimeout = 5 * time.Minute

func main() {
	logger := cli.SetupLogger(log.ComponentSheets, nil)
	ctx := context.Background()
	if err := cli.LoadEnvFile(); err != nil {
		logger.WarnContext(ctx, "Failed to load .env file", log.FieldError, err)
	}

	cfg, err := gsheet.OAuthConfigFromEnv()
	if err != nil {
		logger.ErrorContext(ctx, "OAuth client configuration failed", log.FieldError, err)
		os.Exit(1)
	}

	// The OAuth client must list this URI among its authorized redirect URIs.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", errStr)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		codeCh <- r.URL.Query().Get("code")
	})
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	waitCtx, cancel := context.WithTimeout(sigCtx, authTimeout)
	defer cancel()

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(waitCtx, code)
		if err != nil {
			logger.ErrorContext(ctx, "Token exchange failed", log.FieldError, err)
			os.Exit(1)
		}
		out := gsheet.TokenFile()
		if err := gsheet.SaveToken(out, tok); err != nil {
			logger.ErrorContext(ctx, "Failed to save token", log.FieldError, err)
			os.Exit(1)
		}
		fmt.Printf("Saved token to %s\n", out)
	case err := <-errCh:
		logger.ErrorContext(ctx, "Authorization failed", log.FieldError, err)
		os.Exit(1)
	case <-waitCtx.Done():
		logger.ErrorContext(ctx, "Authorization aborted", log.FieldError, waitCtx.Err())
		os.Exit(1)
	}
}
