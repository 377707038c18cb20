// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// ErrorNotFound is returned by repositories for a missing row.
	ErrorNotFound = errors.New("not found")

	// ErrorAlreadyExists is returned by repositories when an insert hits a
	// primary key or unique constraint.
	ErrorAlreadyExists = errors.New("already exists")

	// ErrStore marks an unexpected persistent-store failure. It fails the
	// current request only.
	ErrStore = errors.New("store error")

	// ErrTransport marks a channel send/receive failure. It ends handling of
	// the affected connection only.
	ErrTransport = errors.New("transport error")

	// ErrNothingExpired is returned by the expiry scan when no key matched.
	// It is distinct from an empty result list.
	ErrNothingExpired = errors.New("nothing expired")
)
