package pos

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokenCacheTTL is deliberately shorter than the server's real token lifetime
// (~15 minutes) so a cached token is never used while it expires mid-request.
const tokenCacheTTL = 10 * time.Minute

// SessionManager obtains and caches a short-lived access token from the POS
// server. The POS enforces a limited pool of concurrent API sessions
// ("licenses"), so every Authenticate must eventually be paired with a Logout
// in the same operation scope. The token cache lives on the instance, not in
// package state; each sync owns its own manager.
type SessionManager struct {
	serverURL    string
	login        string
	passwordHash string
	client       *http.Client

	token     string
	expiresAt time.Time
}

func NewSessionManager(serverURL string, login string, passwordHash string, timeout time.Duration) *SessionManager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SessionManager{
		serverURL:    strings.TrimRight(strings.TrimSpace(serverURL), "/"),
		login:        login,
		passwordHash: passwordHash,
		client:       &http.Client{Timeout: timeout},
	}
}

// Authenticate returns a valid token, reusing the cached one until its
// conservative expiry. On failure the cache is left unset so the next call
// retries fresh.
func (s *SessionManager) Authenticate(ctx context.Context) (string, error) {
	if s.token != "" && time.Now().Before(s.expiresAt) {
		return s.token, nil
	}
	s.token = ""

	endpoint := fmt.Sprintf("%s/resto/api/auth?login=%s&pass=%s",
		s.serverURL, url.QueryEscape(s.login), url.QueryEscape(s.passwordHash))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &AuthError{Detail: err.Error(), Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &AuthError{Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", &AuthError{Detail: err.Error(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	// The auth endpoint answers with the bare token as plain text, not JSON.
	token := strings.TrimSpace(string(body))
	if token == "" || strings.ContainsAny(token, " \n<>") {
		return "", &AuthError{Detail: fmt.Sprintf("unexpected auth response body %q", truncate(token, 80))}
	}

	s.token = token
	s.expiresAt = time.Now().Add(tokenCacheTTL)
	return token, nil
}

// Logout releases the current session license. Failures are logged and
// swallowed: failing to release a license must never block the caller. Local
// cache state is always cleared.
func (s *SessionManager) Logout(ctx context.Context) {
	token := s.token
	s.token = ""
	s.expiresAt = time.Time{}
	if token == "" {
		return
	}

	endpoint := fmt.Sprintf("%s/resto/api/logout?key=%s", s.serverURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Printf("[pos] WARN: logout request build failed: %v", err)
		return
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[pos] WARN: logout failed, session license may leak until server TTL: %v", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
