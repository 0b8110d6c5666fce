package token

import (
	"errors"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"tenantcore.io/internal/session"
)

// sessionClaims flattens the session variant plus user and organisation
// profile data into one claim set. Identifier claims are carried as decimal
// strings so large ids survive every JSON number implementation on the way.
type sessionClaims struct {
	SessionID        string `json:"session_id"`
	SessionType      string `json:"session_type"`
	UserID           string `json:"user_id"`
	WebApplicationID string `json:"web_application_id"`
	TenantID         string `json:"tenant_id,omitempty"`
	BusinessUnitID   string `json:"business_unit_id,omitempty"`
	OperatorID       string `json:"operator_id,omitempty"`

	UserIdentityID string `json:"user_identity_id,omitempty"`
	ProviderID     string `json:"provider_id,omitempty"`
	DisplayName    string `json:"display_name,omitempty"`
	Email          string `json:"email,omitempty"`

	OrganisationID   string `json:"organisation_id,omitempty"`
	OrganisationName string `json:"organisation_name,omitempty"`

	jwt.RegisteredClaims
}

func claimsFromAuthentication(auth session.DecoratedAuthentication) *sessionClaims {
	claims := &sessionClaims{
		SessionType: string(auth.Session.Type()),
	}

	switch s := auth.Session.(type) {
	case session.Guest:
		claims.SessionID = formatID(s.SessionID)
		claims.UserID = formatID(s.UserID)
		claims.WebApplicationID = formatID(s.WebApplicationID)
	case session.Tenant:
		claims.SessionID = formatID(s.SessionID)
		claims.UserID = formatID(s.UserID)
		claims.WebApplicationID = formatID(s.WebApplicationID)
		claims.TenantID = formatID(s.TenantID)
		claims.OperatorID = formatID(s.OperatorID)
	case session.BusinessUnit:
		claims.SessionID = formatID(s.SessionID)
		claims.UserID = formatID(s.UserID)
		claims.WebApplicationID = formatID(s.WebApplicationID)
		claims.TenantID = formatID(s.TenantID)
		claims.BusinessUnitID = formatID(s.BusinessUnitID)
		claims.OperatorID = formatID(s.OperatorID)
	}

	if auth.User != (session.AuthenticatedUser{}) {
		if auth.User.UserIdentityID > 0 {
			claims.UserIdentityID = formatID(auth.User.UserIdentityID)
		}
		claims.ProviderID = auth.User.ProviderID
		claims.DisplayName = auth.User.DisplayName
		claims.Email = auth.User.Email
	}
	if auth.Organisation != nil {
		claims.OrganisationID = formatID(auth.Organisation.OrganisationID)
		claims.OrganisationName = auth.Organisation.Name
	}
	return claims
}

func (c *sessionClaims) toAuthentication() (session.DecoratedAuthentication, error) {
	sessionID, err := parseID(c.SessionID)
	if err != nil {
		return session.DecoratedAuthentication{}, err
	}
	userID, err := parseID(c.UserID)
	if err != nil {
		return session.DecoratedAuthentication{}, err
	}
	webAppID, err := parseID(c.WebApplicationID)
	if err != nil {
		return session.DecoratedAuthentication{}, err
	}

	var sess session.Session
	switch session.Type(c.SessionType) {
	case session.TypeGuest:
		sess = session.Guest{
			SessionID:        sessionID,
			UserID:           userID,
			WebApplicationID: webAppID,
		}
	case session.TypeWebApplication:
		tenantID, err := parseID(c.TenantID)
		if err != nil {
			return session.DecoratedAuthentication{}, err
		}
		operatorID, err := parseID(c.OperatorID)
		if err != nil {
			return session.DecoratedAuthentication{}, err
		}
		sess = session.Tenant{
			SessionID:        sessionID,
			UserID:           userID,
			WebApplicationID: webAppID,
			TenantID:         tenantID,
			OperatorID:       operatorID,
		}
	case session.TypeBusinessUnit:
		tenantID, err := parseID(c.TenantID)
		if err != nil {
			return session.DecoratedAuthentication{}, err
		}
		businessUnitID, err := parseID(c.BusinessUnitID)
		if err != nil {
			return session.DecoratedAuthentication{}, err
		}
		operatorID, err := parseID(c.OperatorID)
		if err != nil {
			return session.DecoratedAuthentication{}, err
		}
		sess = session.BusinessUnit{
			SessionID:        sessionID,
			UserID:           userID,
			WebApplicationID: webAppID,
			TenantID:         tenantID,
			BusinessUnitID:   businessUnitID,
			OperatorID:       operatorID,
		}
	default:
		return session.DecoratedAuthentication{}, session.ErrUnknownType
	}
	if err := sess.Validate(); err != nil {
		return session.DecoratedAuthentication{}, err
	}

	auth := session.DecoratedAuthentication{Session: sess}
	if c.ExpiresAt != nil {
		auth.ExpirationTime = c.ExpiresAt.Time
	}

	if c.UserIdentityID != "" {
		identityID, err := parseID(c.UserIdentityID)
		if err != nil {
			return session.DecoratedAuthentication{}, err
		}
		auth.User.UserIdentityID = identityID
	}
	auth.User.ProviderID = c.ProviderID
	auth.User.DisplayName = c.DisplayName
	auth.User.Email = c.Email
	if c.OrganisationID != "" {
		orgID, err := parseID(c.OrganisationID)
		if err != nil {
			return session.DecoratedAuthentication{}, err
		}
		auth.Organisation = &session.AuthenticatedOrganisation{
			OrganisationID: orgID,
			Name:           c.OrganisationName,
		}
	}
	return auth, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("token: missing identifier claim")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("token: malformed identifier claim")
	}
	if id <= 0 {
		return 0, errors.New("token: non-positive identifier claim")
	}
	return id, nil
}
