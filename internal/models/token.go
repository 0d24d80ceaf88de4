package models

import "time"

// IssuedToken is a signed token together with its expiry moment.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenPair is issued on login and on every refresh rotation.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
