// ABOUTME: Loopback consent prompt for terminal sessions
// ABOUTME: Serves the OAuth redirect locally, opens the browser and waits for the authorization code
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/log"
)

var (
	// ErrStateMismatch is returned when the callback state differs from
	// the one sent with the authorization request.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrNoCode is returned when the callback carries no code.
	ErrNoCode = errors.New("no authorization code received")

	// ErrConsentDenied is returned when the user declines on the consent screen.
	ErrConsentDenied = errors.New("consent denied")
)

// LoopbackConsent receives the OAuth redirect on a local HTTP server.
type LoopbackConsent struct {
	RedirectURL string
	// Open launches a browser. Defaults to OpenBrowser.
	Open   func(url string) error
	Out    io.Writer
	Logger *log.Logger
}

// Prompt opens authURL and blocks until the redirect arrives, the user
// declines, or ctx is done.
func (l *LoopbackConsent) Prompt(ctx context.Context, authURL, state string) (string, error) {
	redirect, err := url.Parse(l.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	// A bare host redirect lands on the root.
	path := redirect.Path
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if reason := q.Get("error"); reason != "" {
			deliver(errChan, fmt.Errorf("%w: %s", ErrConsentDenied, reason))
			_, _ = fmt.Fprintf(w, "Authorization was not granted. You can close this window.")
			return
		}
		if q.Get("state") != state {
			deliver(errChan, ErrStateMismatch)
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			deliver(errChan, ErrNoCode)
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		deliver(codeChan, code)
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen for OAuth callback: %w", err)
	}

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(errChan, err)
		}
	}()
	defer func() { _ = server.Shutdown(context.WithoutCancel(ctx)) }()

	if l.Out != nil {
		_, _ = fmt.Fprintln(l.Out, "Opening browser for Google sign-in...")
		_, _ = fmt.Fprintf(l.Out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	}

	open := l.Open
	if open == nil {
		open = OpenBrowser
	}
	if err := open(authURL); err != nil && l.Logger != nil {
		l.Logger.Debug("failed to open browser", "err", err)
	}

	select {
	case code := <-codeChan:
		return code, nil
	case err := <-errChan:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// OpenBrowser attempts to open url in the default browser.
func OpenBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	return exec.Command(cmd, args...).Start()
}
