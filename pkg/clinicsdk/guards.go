package clinicsdk

import (
	"context"
	"net/url"
)

// GuardState tracks one navigation attempt through its decision.
type GuardState int

const (
	StateUnknown GuardState = iota
	StateChecking
	StateAllowed
	StateDenied
)

func (s GuardState) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAllowed:
		return "allowed"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Decision is a guard's verdict on a navigation attempt. RedirectTo is set
// when denial navigated the user somewhere else; a denial without a redirect
// means "stay put" (logged in but lacking the role). Reason carries the
// taxonomy sentinel behind a denial and is nil when allowed.
type Decision struct {
	State      GuardState
	Allowed    bool
	RedirectTo string
	Reason     error
}

func allowed() Decision {
	return Decision{State: StateAllowed, Allowed: true}
}

func denied(redirect string, reason error) Decision {
	return Decision{State: StateDenied, RedirectTo: redirect, Reason: reason}
}

// AccessController gates navigations on session and role state. Guards
// answer synchronously from the session store when they can and fall back to
// the validate-and-fetch cycle when no session exists yet.
type AccessController struct {
	sdk *SDKClient

	// SelectedPatient reads the externally owned business state consulted
	// by the inpatient precondition guard. Nil means nothing selected.
	SelectedPatient func() *Inpatient

	// OnState observes each guard run as it moves from Checking to its
	// final Allowed or Denied state. Optional; drives spinners and other
	// pending-navigation UI.
	OnState func(GuardState)
}

func (a *AccessController) observe(s GuardState) {
	if a.OnState != nil {
		a.OnState(s)
	}
}

func (a *AccessController) finish(d Decision) Decision {
	a.observe(d.State)
	return d
}

// NewAccessController builds guards over an SDK client. selectedPatient may
// be nil when the inpatient workflow is unused.
func NewAccessController(sdk *SDKClient, selectedPatient func() *Inpatient) *AccessController {
	return &AccessController{sdk: sdk, SelectedPatient: selectedPatient}
}

// AuthGuard admits any authenticated user. With a live session it allows
// immediately; otherwise it validates the stored credential and fetches the
// user, denying with a redirect to login (carrying the attempted path as
// returnUrl) when that fails.
func (a *AccessController) AuthGuard(ctx context.Context, path string) Decision {
	a.observe(StateChecking)
	if a.sdk.sessions.Current() != nil {
		return a.finish(allowed())
	}

	user, err := a.sdk.ValidateAndFetchUser(ctx)
	if err != nil || user == nil {
		return a.finish(a.denyToLogin(path))
	}
	return a.finish(allowed())
}

// RoleGuard admits only users whose role is in the allow-list. A live
// session is checked synchronously, with no network traffic; denial for an
// insufficient role notifies but does not redirect, so "logged in but not
// allowed" is distinguishable from "not logged in".
func (a *AccessController) RoleGuard(ctx context.Context, path, denyMessage string, allow ...Role) Decision {
	a.observe(StateChecking)
	if user := a.sdk.sessions.Current(); user != nil {
		if roleAllowed(user.Role, allow) {
			return a.finish(allowed())
		}
		a.sdk.notifier.Notify(denyMessage)
		return a.finish(denied("", ErrForbidden))
	}

	user, err := a.sdk.ValidateAndFetchUser(ctx)
	if err != nil || user == nil {
		return a.finish(a.denyToLogin(path))
	}
	if !roleAllowed(user.Role, allow) {
		a.sdk.notifier.Notify(denyMessage)
		return a.finish(denied("", ErrForbidden))
	}
	return a.finish(allowed())
}

// AdminGuard admits administrators only.
func (a *AccessController) AdminGuard(ctx context.Context, path string) Decision {
	return a.RoleGuard(ctx, path, msgNotAdmin, RoleAdmin)
}

// MedicalStaffGuard admits nurses, practitioners, and administrators.
func (a *AccessController) MedicalStaffGuard(ctx context.Context, path string) Decision {
	return a.RoleGuard(ctx, path, msgNotMedical, RoleNurse, RolePractitioner, RoleAdmin)
}

// InpatientGuard requires a previously selected patient before entering the
// bed-assignment workflow. Pure business state: the session store is never
// consulted.
func (a *AccessController) InpatientGuard() Decision {
	a.observe(StateChecking)
	if a.SelectedPatient != nil && a.SelectedPatient() != nil {
		return a.finish(allowed())
	}
	a.sdk.notifier.Notify(msgNeedPatient)
	a.sdk.navigator.NavigateTo(RouteDashboard)
	return a.finish(denied(RouteDashboard, ErrPreconditionUnmet))
}

func (a *AccessController) denyToLogin(path string) Decision {
	a.sdk.notifier.Notify(msgNeedLogin)
	redirect := RouteLogin + "?returnUrl=" + url.QueryEscape(path)
	a.sdk.navigator.NavigateTo(redirect)
	return denied(redirect, ErrUnauthorized)
}

func roleAllowed(have Role, allow []Role) bool {
	for _, r := range allow {
		if have == r {
			return true
		}
	}
	return false
}
