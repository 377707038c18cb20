// Package common contains shared constants and sentinel errors used across
// gophlicense components.
package common

import "time"

const (
	// UserFieldMin and UserFieldMax bound user name, password and registration
	// code lengths.
	UserFieldMin = 5
	UserFieldMax = 31

	// KeyNameMin and KeyNameMax bound license key names.
	KeyNameMin = 8
	KeyNameMax = 25

	// KeyMaxAge is how long a key stays valid after its last validation.
	KeyMaxAge = 30 * 24 * time.Hour
)
