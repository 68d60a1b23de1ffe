package clinicsdk

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cxxyao2/eclinic-v2/pkg/idx"
	"github.com/cxxyao2/eclinic-v2/pkg/jwtx"
	"github.com/cxxyao2/eclinic-v2/pkg/slogx"
	"github.com/cxxyao2/eclinic-v2/pkg/tokenstore"
)

// authTransport attaches the stored credential to every outbound request and
// transparently recovers from credential rejection: a credential that is
// locally expired or missing its subject id is refreshed before sending
// (proactive), and a 401 answer
// triggers one refresh-and-resend (reactive). Both paths share the one
// RefreshCoordinator, so concurrent requests cause a single exchange call.
//
// A logical request is sent at most twice. A second 401 is surfaced to the
// error normalizer, which handles the forced logout.
type authTransport struct {
	base      http.RoundTripper
	tokens    tokenstore.Store
	refresher *RefreshCoordinator
	log       *slog.Logger
	now       func() time.Time
}

func newAuthTransport(base http.RoundTripper, tokens tokenstore.Store, refresher *RefreshCoordinator, log *slog.Logger) *authTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{
		base:      base,
		tokens:    tokens,
		refresher: refresher,
		log:       log,
		now:       time.Now,
	}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqID := idx.New()

	// The request-scoped logger rides the context so downstream hooks and
	// tracing see the same req_id that goes on the wire.
	ctx := slogx.WithRequestID(slogx.WithContext(req.Context(), t.log), reqID.String())
	log := slogx.FromContext(ctx).With("method", req.Method, "path", req.URL.Path)

	token, ok := t.tokens.Get()
	if !ok {
		// Some endpoints (login, registration) are public.
		return t.base.RoundTrip(t.prepare(ctx, req, "", reqID))
	}

	if claims, err := jwtx.Decode(token); err != nil {
		// Undecodable credential, same as absent.
		log.Warn("stored credential undecodable, sending unauthenticated", "err", err)
		return t.base.RoundTrip(t.prepare(ctx, req, "", reqID))
	} else if claims.Expired(t.now()) || claims.SubjectID() == "" {
		// A credential without a subject id is as unusable as an expired
		// one; both are exchanged before the send.
		log.Debug("credential expired or incomplete, refreshing before send")
		refreshed, err := t.refresher.Refresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExpiredCredential, err)
		}
		token = refreshed
	}

	resp, err := t.base.RoundTrip(t.prepare(ctx, req, token, reqID))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if req.Body != nil && req.GetBody == nil {
		// Cannot replay the body, so the retry is off the table.
		return resp, nil
	}

	log.Debug("credential rejected, refreshing and retrying once")
	resp.Body.Close()

	refreshed, rerr := t.refresher.Refresh(ctx)
	if rerr != nil {
		return nil, rerr
	}

	// Exactly one resend; a repeat 401 passes through untouched.
	return t.base.RoundTrip(t.prepare(ctx, req, refreshed, reqID))
}

// prepare clones req onto the request-scoped context with auth headers and a
// replayable body. The original request is never mutated, per the
// RoundTripper contract.
func (t *authTransport) prepare(ctx context.Context, req *http.Request, token string, reqID idx.ID) *http.Request {
	out := req.Clone(ctx)
	out.Header.Set("X-Request-Id", reqID.String())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err == nil {
			out.Body = body
		}
	}
	return out
}
