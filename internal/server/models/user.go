// Package models defines server-side data models persisted in the database
// or held in memory.
package models

import "time"

// User is a registered account. Code names the license key consumed at
// registration.
type User struct {
	Name         string
	PasswordHash []byte
	PasswordSalt []byte
	Code         string
	CreatedAt    time.Time
}
