package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
)

// HeaderName carries the admin password on protected requests
const HeaderName = "X-Admin-Password"

var (
	ErrAdminDisabled   = errors.New("admin password not configured")
	ErrInvalidPassword = errors.New("invalid admin password")
)

// Admin checks passwords against the configured admin password
type Admin struct {
	password string
}

func NewAdmin(password string) *Admin {
	return &Admin{password: password}
}

// Enabled reports whether an admin password is configured
func (a *Admin) Enabled() bool {
	return a.password != ""
}

// Check compares a candidate to the admin password. With no password
// configured every candidate is rejected.
func (a *Admin) Check(candidate string) error {
	if !a.Enabled() {
		return ErrAdminDisabled
	}
	// Compare digests so the comparison time does not depend on length.
	want := sha256.Sum256([]byte(a.password))
	got := sha256.Sum256([]byte(candidate))
	if !hmac.Equal(want[:], got[:]) {
		return ErrInvalidPassword
	}
	return nil
}

// FromRequest extracts the password from X-Admin-Password or a bearer token
func FromRequest(r *http.Request) string {
	if pw := r.Header.Get(HeaderName); pw != "" {
		return pw
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
