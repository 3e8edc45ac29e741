// Package validation holds input format checks shared by the services.
package validation

import (
	"errors"
	"net/mail"
	"strings"
)

const (
	maxEmailLength     = 254
	maxEmailLocalPart  = 64
	errInvalidEmailMsg = "invalid email address"
)

// ValidateEmail accepts a bare address such as "user@example.com". Display-name
// forms are rejected.
func ValidateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return errors.New(errInvalidEmailMsg)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New(errInvalidEmailMsg)
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || len(local) > maxEmailLocalPart {
		return errors.New(errInvalidEmailMsg)
	}
	if domain == "" || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") || !strings.Contains(domain, ".") {
		return errors.New(errInvalidEmailMsg)
	}
	return nil
}
