package clinicsdk

// Role is the backend's user role as carried on the user record.
type Role string

const (
	RoleAdmin        Role = "Admin"
	RolePractitioner Role = "Practitioner"
	RoleNurse        Role = "Nurse"
	RoleReceptionist Role = "Receptionist"
	RolePatient      Role = "Patient"
)

// IsMedicalStaff reports whether the role may enter clinical workflows
// (consultations, inpatient care).
func (r Role) IsMedicalStaff() bool {
	return r == RoleNurse || r == RolePractitioner || r == RoleAdmin
}

// User is the authenticated user's profile and role, as returned by the
// backend's user endpoints.
type User struct {
	UserID    int    `json:"userId"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Inpatient is the business entity selected for an inpatient workflow. The
// SDK never owns one; the precondition guard only checks presence.
type Inpatient struct {
	InpatientID int    `json:"inpatientId"`
	PatientID   int    `json:"patientId"`
	PatientName string `json:"patientName"`
	BedID       int    `json:"bedId"`
}

// TokenResponse is the refresh endpoint's success body.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// LoginResponse is the login endpoint's success body.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        *User  `json:"user"`
}

// dataEnvelope is the {data: ...} wrapper most backend endpoints use.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// Client-side routes the SDK redirects to.
const (
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
)

// Navigator performs client-side route changes. The UI layer supplies the
// real implementation; NopNavigator suits headless use.
type Navigator interface {
	NavigateTo(route string)
}

// Notifier surfaces user-facing messages (the UI's snackbar).
type Notifier interface {
	Notify(message string)
}

// NopNavigator ignores navigation requests.
type NopNavigator struct{}

func (NopNavigator) NavigateTo(string) {}

// NopNotifier ignores notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(string) {}
