package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	gsheet "tablero/internal/sheets/google"
)

var sheetsAuthCmd = &cobra.Command{
	Use:   "sheets-auth",
	Short: "Authorize read access to Google Sheets and save the OAuth token",
	Long: "Runs the installed-app OAuth flow with a local redirect and writes the token " +
		"to GOOGLE_OAUTH_TOKEN_FILE, for spreadsheets a service account cannot be shared with.",
	RunE: runSheetsAuth,
}

var authArgs struct {
	port    int
	out     string
	timeout time.Duration
}

func init() {
	sheetsAuthCmd.Flags().IntVar(&authArgs.port, "port", 8085, "local port for the OAuth redirect")
	sheetsAuthCmd.Flags().StringVar(&authArgs.out, "out", "", "token file (defaults to GOOGLE_OAUTH_TOKEN_FILE, then token.json)")
	sheetsAuthCmd.Flags().DurationVar(&authArgs.timeout, "timeout", 5*time.Minute, "how long to wait for the authorization")
	Cmd.AddCommand(sheetsAuthCmd)
}

func runSheetsAuth(cmd *cobra.Command, argv []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, authArgs.timeout)
	defer cancel()

	client, err := gsheet.ReadOAuthClient(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return err
	}

	// The redirect URI must be listed on the OAuth client.
	redirectURL := fmt.Sprintf("http://localhost:%d/callback", authArgs.port)
	oc, err := gsheet.OAuthConfig(client, redirectURL)
	if err != nil {
		return err
	}

	out := authArgs.out
	if out == "" {
		out = cfg.GoogleOAuthTokenFile
	}
	if out == "" {
		out = "token.json"
	}

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization denied: %s", q.Get("error")):
			default:
			}
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			select {
			case codeCh <- q.Get("code"):
			default:
			}
		}
	})

	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", authArgs.port))
	if err != nil {
		return fmt.Errorf("listen for oauth redirect: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n", oc.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New("authorization timed out")
		}
		return errors.New("interrupted")
	}

	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	if err := gsheet.SaveToken(out, tok); err != nil {
		return err
	}
	logger.Info("OAuth token saved", "path", out)
	fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", out)
	return nil
}
