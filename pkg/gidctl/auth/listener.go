package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// RedirectListener is a single-use loopback HTTP responder that captures the
// provider's browser redirect. It accepts at most one callback request and
// releases its port on every exit path so a retried flow can rebind.
type RedirectListener struct {
	listener net.Listener
}

// NewRedirectListener binds the loopback port immediately so the redirect
// URI can be embedded in the authorization URL before serving starts.
// Port 0 picks an ephemeral port.
func NewRedirectListener(port int) (*RedirectListener, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback listener: %w", err)
	}
	return &RedirectListener{listener: listener}, nil
}

// RedirectURI returns the redirect URI for the bound port.
func (l *RedirectListener) RedirectURI() string {
	return fmt.Sprintf("http://%s/callback", l.listener.Addr().String())
}

// Port returns the bound loopback port.
func (l *RedirectListener) Port() int {
	return l.listener.Addr().(*net.TCPAddr).Port
}

// Close releases the port. Safe to call after Await has already done so.
func (l *RedirectListener) Close() error {
	return l.listener.Close()
}

type callbackResult struct {
	code string
	err  error
}

// Await serves the callback endpoint until one request arrives, the timeout
// elapses, or ctx is cancelled. The browser always receives a confirmation
// page so the tab closes cleanly, regardless of outcome.
func (l *RedirectListener) Await(ctx context.Context, expectedState string, timeout time.Duration) (string, error) {
	resultCh := make(chan callbackResult, 1)
	var once sync.Once

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/callback" {
				http.NotFound(w, r)
				return
			}
			result := evaluateCallback(r, expectedState)
			writeCallbackPage(w, result.err)
			once.Do(func() { resultCh <- result })
		}),
	}
	go func() {
		_ = server.Serve(l.listener)
	}()
	defer func() {
		_ = server.Close()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", ErrTimeout
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}
		return result.code, nil
	}
}

func evaluateCallback(r *http.Request, expectedState string) callbackResult {
	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		return callbackResult{err: &AuthorizationError{
			Code:        errCode,
			Description: query.Get("error_description"),
		}}
	}
	// A wrong state is a possible CSRF or a stale tab racing a newer flow.
	if query.Get("state") != expectedState {
		return callbackResult{err: ErrStateMismatch}
	}
	code := query.Get("code")
	if code == "" {
		return callbackResult{err: &AuthorizationError{
			Code:        "invalid_request",
			Description: "callback carried neither code nor error",
		}}
	}
	return callbackResult{code: code}
}

func writeCallbackPage(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprintln(w, "Authentication failed. You can close this window and retry from the terminal.")
		return
	}
	_, _ = fmt.Fprintln(w, "Authentication complete. You can close this window.")
}
