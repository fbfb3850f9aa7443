package models

// User roles
const (
	RoleSender     = "sender"
	RoleDriver     = "driver"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleViewer     = "viewer"
)

// User is the authenticated caller's profile as returned by GET /v1/users/profile
type User struct {
	ID                       string  `json:"_id"`
	Email                    string  `json:"email"`
	FirstName                string  `json:"firstName"`
	LastName                 string  `json:"lastName"`
	Role                     string  `json:"role"`
	Phone                    string  `json:"phone,omitempty"`
	City                     string  `json:"city,omitempty"`
	State                    string  `json:"state,omitempty"`
	ProfilePicture           string  `json:"profilePicture,omitempty"`
	StripeAccountID          string  `json:"stripeAccountId,omitempty"`
	StripeCustomerID         string  `json:"stripeCustomerId,omitempty"`
	StripeVerificationStatus *string `json:"stripeVerificationStatus,omitempty"`
	IsActive                 *bool   `json:"isActive,omitempty"`

	// AccessToken is the bearer token the profile was resolved with. It lives for one request.
	AccessToken string `json:"-"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CanDrive reports whether the role may claim deliveries
func (u *User) CanDrive() bool {
	switch u.Role {
	case RoleDriver, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
