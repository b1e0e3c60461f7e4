// Command finboard-oauth-init runs the OAuth consent flow once and saves a
// refreshable user token for the spreadsheet export.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"

	"finboard/internal/cli"
	"finboard/internal/log"
	gsheet "finboard/internal/sheets/google"
)

const authTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentSheets)

	port := os.Getenv("OAUTH_REDIRECT_PORT")
	if port == "" {
		port = "8085"
	}
	// The OAuth client must list this redirect URI.
	cfg, err := gsheet.OAuthConfig("http://localhost:" + port + "/callback")
	if err != nil {
		logger.ErrorContext(context.Background(), "Invalid OAuth client", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	state := "finboard-" + fmt.Sprint(time.Now().UnixNano())
	codeCh := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errStr := q.Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	})
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorContext(ctx, "Callback server failed", log.FieldError, err)
			cancel()
		}
	}()
	defer srv.Shutdown(context.Background())

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var code string
	select {
	case code = <-codeCh:
	case <-ctx.Done():
		logger.ErrorContext(ctx, "Authorization not completed", log.FieldError, ctx.Err())
		os.Exit(1)
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		logger.ErrorContext(ctx, "Token exchange failed", log.FieldError, err)
		os.Exit(1)
	}

	out := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if out == "" {
		out = gsheet.DefaultTokenFile
	}
	if err := gsheet.SaveToken(out, tok); err != nil {
		logger.ErrorContext(ctx, "Failed to save token", log.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(ctx, "Saved OAuth token", "path", out)
}
