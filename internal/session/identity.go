package session

import "time"

// AuthenticatedUser carries the identity/profile claims of the signed-in user.
type AuthenticatedUser struct {
	UserIdentityID int64
	ProviderID     string
	DisplayName    string
	Email          string
}

// AuthenticatedOrganisation carries tenant display data attached to the
// authentication. The name is an explicit field, never discovered by
// reflection.
type AuthenticatedOrganisation struct {
	OrganisationID int64
	Name           string
}

// DecoratedAuthentication wraps a Session together with the user claims, the
// optional organisation claims, and the credential expiry. It is created by
// the token codec on decode and read-only for the rest of the call.
type DecoratedAuthentication struct {
	Session        Session
	User           AuthenticatedUser
	Organisation   *AuthenticatedOrganisation
	ExpirationTime time.Time
}

// IsExpired reports whether the authentication expired at the given instant.
func (a DecoratedAuthentication) IsExpired(at time.Time) bool {
	return !a.ExpirationTime.IsZero() && !at.Before(a.ExpirationTime)
}
