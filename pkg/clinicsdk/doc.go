/*
Package clinicsdk is the authenticated request pipeline for the eClinic
backend: it stores the bearer credential, inspects its claims, refreshes it
with single-flight semantics, attaches it to outgoing calls with a
retry-once policy on rejection, normalizes failures into a small taxonomy,
and gates navigation on session and role state.

# Client and wiring

Build an SDKClient once at startup and share it:

	sdk := clinicsdk.New(clinicsdk.Config{
		BaseURL:   "https://api.eclinic.example.com",
		Navigator: router,   // UI route changes
		Notifier:  snackbar, // user-facing messages
	})

Every request issued through the client runs the full pipeline:

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/patients", nil)
	resp, err := sdk.Do(req)

# Credential lifecycle

The credential is an opaque bearer token held in a tokenstore.Store. The
transport decodes it (without verifying the signature) to learn its expiry:
an expired credential is exchanged before the request is sent, and a request
rejected with 401 triggers one exchange-and-resend. Both paths converge on a
single RefreshCoordinator, which guarantees at most one exchange call in
flight regardless of how many requests hit an expiry simultaneously.

A failed exchange is fatal to the session: credential and session are
cleared, the user is returned to the login route, and waiting requests fail
with an error wrapping ErrRefreshFailed.

# Session state

SessionStore caches the authenticated user. Observers subscribe and always
receive the most recent value first:

	users, cancel := sdk.Sessions().Subscribe()
	defer cancel()
	for u := range users {
		// nil means logged out
	}

# Guards

AccessController answers "may this navigation proceed":

	guards := clinicsdk.NewAccessController(sdk, selectedPatient)
	if d := guards.AdminGuard(ctx, "/admin"); !d.Allowed {
		// d.RedirectTo set when the user was sent to login
	}

# Errors

Every failure leaving the package wraps a taxonomy sentinel (ErrUnauthorized,
ErrForbidden, ErrUnreachable, ErrServer, ErrRefreshFailed, ...) and carries a
user-presentable message, so callers branch with errors.Is and the UI never
shows a raw transport error.
*/
package clinicsdk
