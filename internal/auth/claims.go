package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	claimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	claimRole           = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	claimEmail          = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
)

// Claims is what the client reads out of the bearer token. The signature is
// not checked here; the API verifies every request.
type Claims struct {
	UserID    string
	Email     string
	Role      string
	ExpiresAt time.Time
}

func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	var claims Claims
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}

	claims.UserID = stringClaim(mc, claimNameIdentifier)
	if claims.UserID == "" {
		claims.UserID, _ = mc.GetSubject()
	}
	claims.Email = stringClaim(mc, claimEmail)
	claims.Role = strings.ToLower(stringClaim(mc, claimRole))

	return claims, nil
}

// stringClaim returns the claim as a string; multi-valued claims yield their
// first element.
func stringClaim(mc jwt.MapClaims, name string) string {
	switch v := mc[name].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// HasStaffAccess mirrors the storefront rule that trainers and admins manage
// the catalog.
func (c Claims) HasStaffAccess() bool {
	return c.Role == "trainer" || c.Role == "admin"
}
