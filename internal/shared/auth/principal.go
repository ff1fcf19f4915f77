package auth

import "strings"

const guestPrefix = "guest:"

// Principal is the caller identity attached to a request.
type Principal struct {
	UserID  string
	IsGuest bool
}

// Guest builds the principal for an anonymous caller identified by a client-chosen id.
func Guest(id string) Principal {
	return Principal{UserID: guestPrefix + strings.TrimSpace(id), IsGuest: true}
}

// User builds the principal for an authenticated subject.
func User(sub string) Principal {
	return Principal{UserID: sub}
}

// Valid reports whether the principal carries an identity.
func (p Principal) Valid() bool {
	id := strings.TrimSpace(strings.TrimPrefix(p.UserID, guestPrefix))
	return id != ""
}
