// Package token mints the HS256 API keys the Supabase services expect.
//
// Every service in a stack shares one JWT secret; the anon and service_role
// keys are just long-lived tokens signed with it.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// RoleAnon is the role claim for unauthenticated access.
	RoleAnon = "anon"
	// RoleServiceRole is the role claim that bypasses row level security.
	RoleServiceRole = "service_role"

	// Issuer is the iss claim set on minted tokens.
	Issuer = "supabase"

	// keyTTL is the lifetime of the anon and service_role keys. They live as
	// long as local stacks plausibly do.
	keyTTL = 10 * 365 * 24 * time.Hour
)

// ErrEmptySecret is returned when the signing secret is empty.
var ErrEmptySecret = errors.New("token: JWT secret cannot be empty")

// Sign mints an HS256 token carrying the given role claim.
func Sign(secret, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"role": role,
		"iss":  Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("token: sign %s key: %w", role, err)
	}
	return tok, nil
}

// AnonKey mints the anonymous API key for the given secret.
func AnonKey(secret string) (string, error) {
	return Sign(secret, RoleAnon, keyTTL)
}

// ServiceRoleKey mints the service role API key for the given secret.
func ServiceRoleKey(secret string) (string, error) {
	return Sign(secret, RoleServiceRole, keyTTL)
}
