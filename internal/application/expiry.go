package application

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// credentialExpired reports whether cred is a JWT whose exp claim is in the
// past. Tokens that are not JWTs, or carry no exp, never expire here; the
// provider remains the authority on validity. The signature is not checked
// because the signing key belongs to the provider.
func credentialExpired(cred model.Credential, now time.Time) bool {
	if cred.IsZero() {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(cred.String(), claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(now)
}
