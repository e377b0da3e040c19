package session

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
)

// Callback error codes.
const (
	CodePopupClosed  = "auth/popup-closed-by-user"
	CodePopupBlocked = "auth/popup-blocked"
	CodeInvalidState = "auth/invalid-state"
	CodeMissingCode  = "auth/missing-code"
	CodeTimeout      = "auth/timeout"
)

// ParseCallback extracts the authorization code from an OAuth redirect query.
// Provider errors become *domain.AuthError with code "auth/<error>"; a user
// who dismisses the consent screen gets CodePopupClosed.
func ParseCallback(q url.Values, expectedState string) (string, error) {
	if errParam := q.Get("error"); errParam != "" {
		desc := q.Get("error_description")
		if errParam == "access_denied" {
			if desc == "" {
				desc = "the sign-in window was closed before completing"
			}
			return "", domain.NewAuthError(CodePopupClosed, desc)
		}
		if desc == "" {
			desc = errParam
		}
		return "", domain.NewAuthError("auth/"+errParam, desc)
	}

	if expectedState == "" || q.Get("state") != expectedState {
		return "", domain.NewAuthError(CodeInvalidState, "state parameter does not match the sign-in request")
	}

	code := q.Get("code")
	if code == "" {
		return "", domain.NewAuthError(CodeMissingCode, "no authorization code received")
	}
	return code, nil
}

// callbackServer receives one OAuth redirect on a loopback address.
type callbackServer struct {
	mu            sync.Mutex
	port          int
	expectedState string
	codeChan      chan string
	errChan       chan error
	server        *http.Server
}

func newCallbackServer(port int, expectedState string) *callbackServer {
	return &callbackServer{
		port:          port,
		expectedState: expectedState,
		codeChan:      make(chan string, 1),
		errChan:       make(chan error, 1),
	}
}

// Start listens on 127.0.0.1. Port 0 picks a free port.
func (s *callbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.sendErr(err)
		}
	}()
	return nil
}

func (s *callbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	code, err := ParseCallback(r.URL.Query(), s.expectedState)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err != nil {
		s.sendErr(err)
		_, _ = fmt.Fprint(w, callbackHTML("Sign-in failed", err.Error()))
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}
	_, _ = fmt.Fprint(w, callbackHTML("Signed in", "You can close this window and return to the terminal."))
}

func (s *callbackServer) sendErr(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

// Wait blocks until a code arrives, the callback reports an error or ctx ends.
func (s *callbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", domain.NewAuthError(CodeTimeout, "timed out waiting for the sign-in callback")
		}
		return "", domain.NewAuthError(CodeCancelled, "sign-in was cancelled")
	}
}

// Stop shuts the server down.
func (s *callbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// RedirectURI is the address registered as the OAuth redirect.
func (s *callbackServer) RedirectURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://127.0.0.1:%d/callback", s.port)
}

func callbackHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>INSPIRE papers - %s</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
}

// OpenBrowser opens url in the system browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
