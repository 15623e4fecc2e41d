package session

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordChecker compares login attempts against the configured secret.
type PasswordChecker struct {
	secret []byte
	hashed bool
}

// NewPasswordChecker creates a checker. A secret that looks like a bcrypt hash
// is verified with bcrypt, anything else is compared as plain text.
func NewPasswordChecker(secret string) *PasswordChecker {
	return &PasswordChecker{
		secret: []byte(secret),
		hashed: isBcryptHash(secret),
	}
}

// Check reports whether candidate matches the secret. An empty secret matches nothing.
func (c *PasswordChecker) Check(candidate string) bool {
	if len(c.secret) == 0 || candidate == "" {
		return false
	}
	if c.hashed {
		return bcrypt.CompareHashAndPassword(c.secret, []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare(c.secret, []byte(candidate)) == 1
}

// Configured reports whether a secret is set.
func (c *PasswordChecker) Configured() bool {
	return len(c.secret) > 0
}

func isBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
