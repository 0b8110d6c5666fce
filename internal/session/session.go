package session

import (
	"errors"
	"fmt"
)

// Type discriminates the closed set of session variants. The values double
// as the session_type claim on the wire.
type Type string

const (
	TypeGuest          Type = "GUEST"
	TypeWebApplication Type = "WEB_APPLICATION"
	TypeBusinessUnit   Type = "BUSINESS_UNIT"
)

var (
	// ErrInvalidSession indicates a session value that violates the model
	// invariants (missing or non-positive identifiers).
	ErrInvalidSession = errors.New("session: invalid session")

	// ErrUnknownType indicates an unrecognised session_type discriminator.
	ErrUnknownType = errors.New("session: unknown session type")
)

// Session is the authenticated-session variant created once at
// authentication time and held for the lifetime of one inbound call.
// Implementations are immutable value objects; the set of variants is closed.
type Session interface {
	// Ref returns the identifiers every variant carries.
	Ref() Ref
	// Type returns the variant discriminator.
	Type() Type
	// Validate reports whether the variant satisfies its invariants.
	Validate() error

	sealed()
}

// Ref carries the identifiers shared by all session variants.
type Ref struct {
	SessionID        int64
	UserID           int64
	WebApplicationID int64
}

func (r Ref) validate() error {
	if r.SessionID <= 0 {
		return fmt.Errorf("%w: session id must be positive", ErrInvalidSession)
	}
	if r.UserID <= 0 {
		return fmt.Errorf("%w: user id must be positive", ErrInvalidSession)
	}
	if r.WebApplicationID <= 0 {
		return fmt.Errorf("%w: web application id must be positive", ErrInvalidSession)
	}
	return nil
}

// Guest is an unauthenticated-tenant session: a signed-in user with no
// tenant affiliation yet.
type Guest struct {
	SessionID        int64
	UserID           int64
	WebApplicationID int64
}

func (s Guest) Ref() Ref {
	return Ref{SessionID: s.SessionID, UserID: s.UserID, WebApplicationID: s.WebApplicationID}
}

func (s Guest) Type() Type      { return TypeGuest }
func (s Guest) Validate() error { return s.Ref().validate() }
func (Guest) sealed()           {}

// Tenant is a session bound to a single tenant organisation.
type Tenant struct {
	SessionID        int64
	UserID           int64
	WebApplicationID int64
	TenantID         int64
	OperatorID       int64
}

func (s Tenant) Ref() Ref {
	return Ref{SessionID: s.SessionID, UserID: s.UserID, WebApplicationID: s.WebApplicationID}
}

func (s Tenant) Type() Type { return TypeWebApplication }

func (s Tenant) Validate() error {
	if err := s.Ref().validate(); err != nil {
		return err
	}
	if s.TenantID <= 0 {
		return fmt.Errorf("%w: tenant id must be positive", ErrInvalidSession)
	}
	if s.OperatorID <= 0 {
		return fmt.Errorf("%w: operator id must be positive", ErrInvalidSession)
	}
	return nil
}

func (Tenant) sealed() {}

// BusinessUnit is a session bound to one business unit inside a tenant.
// It always carries both the tenant and the business unit identifier.
type BusinessUnit struct {
	SessionID        int64
	UserID           int64
	WebApplicationID int64
	TenantID         int64
	BusinessUnitID   int64
	OperatorID       int64
}

func (s BusinessUnit) Ref() Ref {
	return Ref{SessionID: s.SessionID, UserID: s.UserID, WebApplicationID: s.WebApplicationID}
}

func (s BusinessUnit) Type() Type { return TypeBusinessUnit }

func (s BusinessUnit) Validate() error {
	if err := s.Ref().validate(); err != nil {
		return err
	}
	if s.TenantID <= 0 {
		return fmt.Errorf("%w: tenant id must be positive", ErrInvalidSession)
	}
	if s.BusinessUnitID <= 0 {
		return fmt.Errorf("%w: business unit id must be positive", ErrInvalidSession)
	}
	if s.OperatorID <= 0 {
		return fmt.Errorf("%w: operator id must be positive", ErrInvalidSession)
	}
	return nil
}

func (BusinessUnit) sealed() {}

// TenantID returns the tenant carried by the session, if the variant has one.
func TenantID(s Session) (int64, bool) {
	switch v := s.(type) {
	case Tenant:
		return v.TenantID, true
	case BusinessUnit:
		return v.TenantID, true
	default:
		return 0, false
	}
}

// BusinessUnitID returns the business unit carried by the session, if the
// variant has one.
func BusinessUnitID(s Session) (int64, bool) {
	if v, ok := s.(BusinessUnit); ok {
		return v.BusinessUnitID, true
	}
	return 0, false
}
