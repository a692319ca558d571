package gmail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ErrServiceUnavailable wraps every credential failure. A run that gets it
// stops before issuing any query.
var ErrServiceUnavailable = errors.New("gmail service unavailable")

// redirectTimeout bounds the wait for the loopback redirect before falling
// back to manual paste.
const redirectTimeout = 120 * time.Second

// Authorizer acquires an authorized Gmail service using:
// - OAuth client credentials at ClientSecrets
// - a cached token in Tokens
// Scope: gmail.readonly.
type Authorizer struct {
	ClientSecrets string
	Tokens        TokenStore
	Logger        *log.Logger

	// Prompt and Input drive the manual fallback; they default to
	// os.Stderr and os.Stdin.
	Prompt io.Writer
	Input  io.Reader

	// Browser opens the consent URL; defaults to OpenBrowser.
	Browser func(string) error
}

// NewService returns a Gmail service backed by a valid token, running the
// consent flow when the cached token is missing or rejected.
func (a *Authorizer) NewService(ctx context.Context) (*gmailv1.Service, error) {
	svc, err := a.newService(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return svc, nil
}

// Authorize runs the consent flow unconditionally and stores the new token.
func (a *Authorizer) Authorize(ctx context.Context) error {
	cfg, err := a.oauthConfig()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	if _, err := a.authorize(ctx, cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return nil
}

func (a *Authorizer) newService(ctx context.Context) (*gmailv1.Service, error) {
	cfg, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}

	tok, err := a.Tokens.Load()
	if err == nil {
		// Validate the cached token by making a lightweight API call.
		svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
		if err == nil {
			_, err = svc.Users.GetProfile("me").Context(ctx).Do()
		}
		if err == nil {
			return svc, nil
		}
		a.logger().Warn("cached token rejected; re-authorizing", "error", err)
		if err := a.Tokens.Clear(); err != nil {
			a.logger().Warn("clear cached token", "error", err)
		}
	} else if !errors.Is(err, ErrNoToken) {
		a.logger().Warn("read cached token", "error", err)
	}

	tok, err = a.authorize(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func (a *Authorizer) oauthConfig() (*oauth2.Config, error) {
	b, err := os.ReadFile(a.ClientSecrets)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w", a.ClientSecrets, err)
	}
	cfg, err := google.ConfigFromJSON(b, gmailv1.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}
	return cfg, nil
}

func (a *Authorizer) authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	tok, err := a.tokenFromWeb(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.Tokens.Save(tok); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return tok, nil
}

func (a *Authorizer) logger() *log.Logger {
	if a.Logger == nil {
		return log.New(io.Discard)
	}
	return a.Logger
}

func (a *Authorizer) prompt() io.Writer {
	if a.Prompt == nil {
		return os.Stderr
	}
	return a.Prompt
}

func (a *Authorizer) input() io.Reader {
	if a.Input == nil {
		return os.Stdin
	}
	return a.Input
}

// tokenFromWeb runs a loopback HTTP server to capture the auth code.
// If that fails or times out, it falls back to manual paste (code or URL).
func (a *Authorizer) tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	out := a.prompt()

	type result struct {
		code string
		err  error
	}
	resCh := make(chan result, 1)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err == nil {
		port := ln.Addr().(*net.TCPAddr).Port
		redirect := fmt.Sprintf("http://127.0.0.1:%d/", port)
		oldRedirect := cfg.RedirectURL
		cfg.RedirectURL = redirect

		mux := http.NewServeMux()
		srv := &http.Server{
			ReadHeaderTimeout: 5 * time.Second,
			Handler:           mux,
		}
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authentication complete. You can close this window.")
			select {
			case resCh <- result{code: code}:
			default:
			}
			go func() { _ = srv.Shutdown(context.Background()) }()
		})
		go func() { _ = srv.Serve(ln) }()

		authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		fmt.Fprintln(out, "A browser window will open. If it does not, copy this URL:")
		fmt.Fprintln(out, authURL)
		fmt.Fprintf(out, "Waiting for redirect on %s …\n", redirect)
		a.openBrowser(authURL)

		select {
		case <-ctx.Done():
			cfg.RedirectURL = oldRedirect
			_ = srv.Shutdown(context.Background())
			return nil, ctx.Err()
		case r := <-resCh:
			if r.err != nil {
				return nil, r.err
			}
			tok, err := cfg.Exchange(ctx, strings.TrimSpace(r.code))
			if err != nil {
				return nil, fmt.Errorf("token exchange: %w", err)
			}
			// Restore redirect only after the exchange to avoid invalid_grant.
			cfg.RedirectURL = oldRedirect
			fmt.Fprintln(out, "Authentication successful.")
			return tok, nil
		case <-time.After(redirectTimeout):
			cfg.RedirectURL = oldRedirect
			_ = srv.Shutdown(context.Background())
			fmt.Fprintln(out, "Timeout waiting for redirect; falling back to manual paste.")
		}
	}

	// Manual paste fallback.
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(out, "Open this URL in your browser to authorize jobtally:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Paste the AUTH CODE itself or the FULL redirect URL here, then press Enter.")
	fmt.Fprint(out, "> ")

	sc := bufio.NewScanner(a.input())
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read auth code: %w", err)
		}
		return nil, errors.New("empty authorization code")
	}
	code, err := ParseAuthCode(sc.Text())
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	fmt.Fprintln(out, "Authentication successful.")
	return tok, nil
}

func (a *Authorizer) openBrowser(u string) {
	open := a.Browser
	if open == nil {
		open = OpenBrowser
	}
	if err := open(u); err != nil {
		a.logger().Debug("open browser", "error", err)
	}
}

// ParseAuthCode accepts either a bare authorization code or the full
// redirect URL carrying it.
func ParseAuthCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	code := strings.TrimSpace(u.Query().Get("code"))
	if code == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return code, nil
}
