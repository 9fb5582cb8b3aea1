package users

import (
	"context"

	"github.com/mzhurin/convo/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByUsernameAndEmail(ctx context.Context, username, email string) (*models.User, error)
	GetByUnique(ctx context.Context, unique string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}
