package models

import "time"

// Key is a license key. Used flips once, at the registration that consumes
// it. LastValidated is nil until the key is first activated.
type Key struct {
	Name          string
	Used          bool
	Valid         bool
	LastValidated *time.Time
	CreatedAt     time.Time
}

// ExpiredAt reports whether a valid key has gone maxAge without validation
// at instant now.
func (k *Key) ExpiredAt(now time.Time, maxAge time.Duration) bool {
	if !k.Valid || k.LastValidated == nil {
		return false
	}
	return now.Sub(*k.LastValidated) >= maxAge
}
