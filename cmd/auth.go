package cmd

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailer/internal/google"
	"github.com/teemow/gmailer/internal/logging"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize gmailer to access the Gmail account",
	}
	cmd.AddCommand(newAuthURLCmd(a))
	cmd.AddCommand(newAuthExchangeCmd(a))
	cmd.AddCommand(newAuthLoginCmd(a))
	cmd.AddCommand(newAuthRefreshCmd(a))
	return cmd
}

func newAuthURLCmd(a *app) *cobra.Command {
	var redirectURI, state string

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the consent URL to open in a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := a.tokenStore(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tokens.AuthorizationURL(redirectURI, state))
			return err
		},
	}

	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "Redirect URI registered for the OAuth client (required)")
	cmd.Flags().StringVar(&state, "state", google.DefaultState, "Opaque state passed through the consent screen")
	_ = cmd.MarkFlagRequired("redirect-uri")

	return cmd
}

func newAuthExchangeCmd(a *app) *cobra.Command {
	var code, redirectURI string

	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Exchange an authorization code for tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := a.tokenStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := tokens.ExchangeAuthorizationCode(cmd.Context(), code, redirectURI); err != nil {
				return err
			}
			return a.printJSON(tokenStatus(tokens))
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the redirect (required)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "Redirect URI used for the consent URL (required)")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("redirect-uri")

	return cmd
}

func newAuthRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := a.tokenStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := tokens.Refresh(cmd.Context()); err != nil {
				return err
			}
			return a.printJSON(tokenStatus(tokens))
		},
	}
}

func tokenStatus(tokens *google.TokenStore) map[string]any {
	return map[string]any{
		"authorized": tokens.Authorized(),
		"expiresAt":  tokens.ExpiresAt(),
	}
}

func newAuthLoginCmd(a *app) *cobra.Command {
	var listen, redirectURI, state string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize through a local callback server",
		Long: `Start a local HTTP server, print the consent URL and wait until Google
redirects back with an authorization code. The redirect URI
(http://<listen>/callback by default) must be registered for the OAuth client.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tokens, err := a.tokenStore(ctx)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", listen, err)
			}
			if redirectURI == "" {
				redirectURI = "http://" + ln.Addr().String() + "/callback"
			}

			done := make(chan error, 1)
			srv := &http.Server{
				Handler:           newCallbackHandler(tokens, redirectURI, state, a.log(), done),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					done <- err
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL in your browser to authorize gmailer:\n\n  %s\n\n",
				tokens.AuthorizationURL(redirectURI, state))

			select {
			case err := <-done:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}

			return a.printJSON(tokenStatus(tokens))
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8085", "Address of the local callback server")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "Redirect URI to send to Google (default: http://<listen>/callback)")
	cmd.Flags().StringVar(&state, "state", google.DefaultState, "Opaque state passed through the consent screen")

	return cmd
}

// authorizer is the part of *google.TokenStore the callback handler needs.
type authorizer interface {
	Authorize(ctx context.Context, code, redirectURI, state string) (google.AuthResult, error)
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html><head><title>gmailer</title></head>
<body><h1>{{.Title}}</h1><p>{{.Message}}</p></body></html>
`))

// newCallbackHandler drives Authorize over HTTP. A request without a code is
// redirected to the consent screen; a request with a code is exchanged and
// reported on done. Only the first outcome is reported.
func newCallbackHandler(tokens authorizer, redirectURI, state string, logger *slog.Logger, done chan<- error) http.Handler {
	logger = logging.WithOperation(logging.OrDefault(logger), "auth.callback")

	report := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	render := func(w http.ResponseWriter, status int, title, message string) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = resultPage.Execute(w, map[string]string{"Title": title, "Message": message})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}

		q := r.URL.Query()
		if denied := q.Get("error"); denied != "" {
			logger.Warn("authorization denied", logging.Err(errors.New(denied)))
			render(w, http.StatusBadRequest, "Authorization failed", "Google returned: "+denied)
			report(fmt.Errorf("authorization denied: %s", denied))
			return
		}

		code := q.Get("code")
		if code != "" && q.Get("state") != state {
			logger.Warn("callback state mismatch")
			render(w, http.StatusBadRequest, "Authorization failed", "The state parameter does not match.")
			return
		}

		res, err := tokens.Authorize(r.Context(), code, redirectURI, state)
		if err != nil {
			logger.Error("authorization failed", logging.Err(err))
			render(w, http.StatusBadGateway, "Authorization failed", err.Error())
			report(err)
			return
		}
		if res.NeedsRedirect() {
			http.Redirect(w, r, res.RedirectURL, http.StatusFound)
			return
		}

		logger.Info("authorization completed")
		render(w, http.StatusOK, "gmailer is authorized", "You can close this window.")
		report(nil)
	})
}
