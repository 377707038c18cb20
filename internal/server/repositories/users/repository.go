// Package users persists registered accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophlicense/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByName(ctx context.Context, name string) (*models.User, error)
	Exists(ctx context.Context, name string) (bool, error)
}
