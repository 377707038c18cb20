// Package keys persists license keys and their validity state.
package keys

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/server/models"
)

type Repository interface {
	// Create inserts an unused, invalid key.
	Create(ctx context.Context, name string, now time.Time) error
	Get(ctx context.Context, name string) (*models.Key, error)
	// Activate consumes an unused key and marks it valid as of now.
	// It reports false when the key is missing or already used.
	Activate(ctx context.Context, name string, now time.Time) (bool, error)
	// Revalidate marks the key valid as of now. It reports false when
	// the key does not exist.
	Revalidate(ctx context.Context, name string, now time.Time) (bool, error)
	// InvalidateExpired clears valid on every valid key last validated at
	// or before cutoff and returns the affected names, sorted.
	InvalidateExpired(ctx context.Context, cutoff time.Time) ([]string, error)
}
