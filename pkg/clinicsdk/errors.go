package clinicsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Failure taxonomy. Every error leaving the SDK wraps exactly one of these,
// so callers can branch with errors.Is instead of matching status codes.
var (
	// ErrExpiredCredential reports a credential rejected locally before the
	// send, expired or missing its subject id. Recovered internally via
	// refresh; callers only see it when the exchange itself fails.
	ErrExpiredCredential = errors.New("clinicsdk: credential expired")

	// ErrRefreshFailed reports that the identity provider rejected or never
	// answered a credential exchange. Fatal to the session.
	ErrRefreshFailed = errors.New("clinicsdk: token refresh failed")

	// ErrUnauthorized reports a 401 that survived the single retry.
	ErrUnauthorized = errors.New("clinicsdk: unauthorized")

	// ErrForbidden reports a 403: authenticated but insufficient role.
	ErrForbidden = errors.New("clinicsdk: forbidden")

	// ErrUnreachable reports a transport-level failure (the status-0 case).
	ErrUnreachable = errors.New("clinicsdk: server unreachable")

	// ErrServer reports any other non-2xx response.
	ErrServer = errors.New("clinicsdk: server error")

	// ErrPreconditionUnmet reports a guard-level business-state failure.
	ErrPreconditionUnmet = errors.New("clinicsdk: precondition unmet")
)

// User-facing messages, matching what the front desk staff are used to.
const (
	msgSessionExpired = "Your session has expired. Please log in again."
	msgForbidden      = "You don't have permission to access this resource."
	msgOffline        = "Cannot connect to the server. Please check your internet connection."
	msgGenericError   = "An error occurred while processing your request."
	msgNeedLogin      = "You need to login first"
	msgNotAdmin       = "You are not admin"
	msgNotMedical     = "You are not medical staff"
	msgNeedPatient    = "You need to select a patient first"
)

// APIError is a normalized request failure with a human-readable message.
type APIError struct {
	Status  int    // HTTP status, 0 when the server was unreachable
	Message string // always non-empty
	kind    error  // taxonomy sentinel
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error { return e.kind }

// ErrorNormalizer classifies HTTP and transport failures and performs the
// associated UI side effects before handing the error back for
// component-local handling.
type ErrorNormalizer struct {
	sessions  *SessionStore
	navigator Navigator
	notifier  Notifier
	log       *slog.Logger
}

func NewErrorNormalizer(sessions *SessionStore, nav Navigator, notify Notifier, log *slog.Logger) *ErrorNormalizer {
	if log == nil {
		log = slog.Default()
	}
	return &ErrorNormalizer{sessions: sessions, navigator: nav, notifier: notify, log: log}
}

// Normalize maps (resp, err) from an HTTP round trip to the taxonomy and
// runs side effects. Returns nil for 2xx. The response body is not consumed
// on success; on failure it is read for a message and can be considered
// spent.
func (n *ErrorNormalizer) Normalize(resp *http.Response, err error) error {
	if err != nil {
		// Refresh failures carry their own side effects; pass them through.
		if errors.Is(err, ErrRefreshFailed) {
			return err
		}
		n.notifier.Notify(msgOffline)
		n.log.Warn("request transport failure", "err", err)
		return &APIError{Status: 0, Message: msgOffline, kind: ErrUnreachable}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil

	case resp.StatusCode == http.StatusUnauthorized:
		n.sessions.Set(nil)
		n.navigator.NavigateTo(RouteLogin)
		n.notifier.Notify(msgSessionExpired)
		n.log.Warn("unauthorized after retry", "url", resp.Request.URL.Path)
		return &APIError{Status: resp.StatusCode, Message: msgSessionExpired, kind: ErrUnauthorized}

	case resp.StatusCode == http.StatusForbidden:
		n.notifier.Notify(msgForbidden)
		return &APIError{Status: resp.StatusCode, Message: msgForbidden, kind: ErrForbidden}

	default:
		msg := messageFromBody(resp.Body)
		n.notifier.Notify(msg)
		n.log.Warn("request failed", "status", resp.StatusCode, "url", resp.Request.URL.Path)
		return &APIError{Status: resp.StatusCode, Message: msg, kind: ErrServer}
	}
}

// messageFromBody extracts {"message": ...} from an error body, falling back
// to a generic string so every surfaced error is presentable.
func messageFromBody(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return msgGenericError
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		return msgGenericError
	}
	return payload.Message
}
