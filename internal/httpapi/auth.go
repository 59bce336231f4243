package httpapi

import (
	"crypto/subtle"

	"github.com/pitchside/auctioneer/internal/models"
)

// Authenticator validates per-role shared secrets. Spectators carry no
// secret; the core trusts the asserted role once the PIN checks out and
// performs no further authorization.
type Authenticator struct {
	pins map[string]string
}

// NewAuthenticator builds the role→PIN table.
func NewAuthenticator(adminPIN, captain1PIN, captain2PIN string) *Authenticator {
	return &Authenticator{
		pins: map[string]string{
			"admin":                      adminPIN,
			string(models.TeamCaptain1): captain1PIN,
			string(models.TeamCaptain2): captain2PIN,
		},
	}
}

// Check reports whether pin is the configured secret for role.
func (a *Authenticator) Check(role, pin string) bool {
	if role == "spectator" {
		return true
	}
	expected, ok := a.pins[role]
	if !ok || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(pin)) == 1
}
