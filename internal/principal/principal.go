// Package principal models the caller identity as a tagged variant checked
// once at the boundary. Handlers ask the Principal what it may do instead of
// re-deriving capabilities from role strings.
package principal

import (
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleVolunteer Role = "volunteer"
	RoleFamily    Role = "family"
)

// Principal identifies an authenticated caller and its role.
type Principal struct {
	ID   string
	Role Role
}

// CanModerate covers approvals, camp management and match confirmation.
func (p Principal) CanModerate() bool {
	return p.Role == RoleAdmin
}

// CanReportSighting covers submitting sightings of found persons.
func (p Principal) CanReportSighting() bool {
	return p.Role == RoleVolunteer || p.Role == RoleAdmin
}

// CanSubmitSearch covers filing missing-person search requests.
func (p Principal) CanSubmitSearch() bool {
	return p.Role == RoleFamily || p.Role == RoleAdmin
}

// Claims returns the JWT claims for this principal, without expiry; the
// token issuer adds that.
func (p Principal) Claims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  p.ID,
		"role": string(p.Role),
	}
}

// FromClaims rebuilds a Principal from verified JWT claims.
func FromClaims(claims jwt.MapClaims) (Principal, error) {
	sub, _ := claims["sub"].(string)
	roleStr, _ := claims["role"].(string)
	if sub == "" {
		return Principal{}, fmt.Errorf("token missing subject")
	}
	switch Role(roleStr) {
	case RoleAdmin, RoleVolunteer, RoleFamily:
		return Principal{ID: sub, Role: Role(roleStr)}, nil
	default:
		return Principal{}, fmt.Errorf("unknown role %q", roleStr)
	}
}
