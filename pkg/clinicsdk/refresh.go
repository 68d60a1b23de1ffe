package clinicsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cxxyao2/eclinic-v2/pkg/tokenstore"
)

// refreshTimeout bounds the exchange call. A timed-out exchange is a refresh
// failure.
const refreshTimeout = 10 * time.Second

// RefreshCoordinator exchanges an expired credential for a fresh one with
// single-flight semantics: at most one exchange call is in flight
// system-wide, and every concurrent caller shares its outcome.
//
// The naive boolean-flag approach races: two callers can both observe "not
// refreshing" before either sets the flag. Here the pending call reference
// is created and published inside one mutex hold, so a second caller can
// never miss an outstanding exchange.
type RefreshCoordinator struct {
	baseURL string
	// client must NOT carry the authenticated transport, or a refresh
	// triggered inside RoundTrip would recurse.
	client *http.Client

	tokens    tokenstore.Store
	sessions  *SessionStore
	navigator Navigator
	notifier  Notifier
	limiter   *rate.Limiter
	log       *slog.Logger

	mu      sync.Mutex
	pending *refreshCall
}

// refreshCall is one outstanding exchange. Waiters block on done and then
// read token/err, which are written before done is closed.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

func newRefreshCoordinator(
	baseURL string,
	client *http.Client,
	tokens tokenstore.Store,
	sessions *SessionStore,
	nav Navigator,
	notify Notifier,
	limiter *rate.Limiter,
	log *slog.Logger,
) *RefreshCoordinator {
	return &RefreshCoordinator{
		baseURL:   baseURL,
		client:    client,
		tokens:    tokens,
		sessions:  sessions,
		navigator: nav,
		notifier:  notify,
		limiter:   limiter,
		log:       log,
	}
}

// Refresh returns a fresh credential, joining an in-flight exchange when one
// exists. On success the new credential is already persisted. On failure the
// stored credential and session are cleared and the user is sent to the
// login route; those side effects run once per flight no matter how many
// callers were waiting. The returned error wraps ErrRefreshFailed.
//
// ctx only governs this caller's wait: a caller giving up does not abort the
// exchange, since other waiters may still depend on it.
func (r *RefreshCoordinator) Refresh(ctx context.Context) (string, error) {
	r.mu.Lock()
	if call := r.pending; call != nil {
		r.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	r.pending = call
	r.mu.Unlock()

	token, err := r.exchange()
	if err != nil {
		r.forceLogout(err)
	} else {
		r.tokens.Set(token)
	}

	// Publish the outcome and clear the pending marker in one critical
	// section: no observer can see "no pending call" while the result is
	// still unset.
	r.mu.Lock()
	call.token, call.err = token, err
	r.pending = nil
	close(call.done)
	r.mu.Unlock()

	return token, err
}

// exchange performs the actual POST /auth/refresh-token call. It runs on a
// detached context so that a caller navigating away cannot kill an exchange
// other waiters share.
func (r *RefreshCoordinator) exchange() (string, error) {
	if !r.limiter.Allow() {
		return "", fmt.Errorf("%w: too many refresh attempts", ErrRefreshFailed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/auth/refresh-token", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: exchange returned status %d", ErrRefreshFailed, resp.StatusCode)
	}

	var body TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: bad exchange response: %v", ErrRefreshFailed, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: exchange returned no token", ErrRefreshFailed)
	}

	r.log.Debug("credential refreshed")
	return body.AccessToken, nil
}

// forceLogout tears the session down after an unrecoverable refresh failure.
// Runs in the flight owner's goroutine only, so state is cleared and the
// user redirected exactly once per failed flight.
func (r *RefreshCoordinator) forceLogout(cause error) {
	r.log.Warn("refresh failed, forcing logout", "err", cause)
	r.tokens.Clear()
	r.sessions.Set(nil)
	r.navigator.NavigateTo(RouteLogin)
	r.notifier.Notify(msgSessionExpired)
}
