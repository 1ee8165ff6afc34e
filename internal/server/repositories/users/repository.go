package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/plantapi/internal/server/models"
)

// Repository is the credential store. Lookups return common.ErrorNotFound
// when no row matches; Create returns common.ErrDuplicateIdentity when the
// username or email is already taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	SetResetToken(ctx context.Context, id string, digest string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	FindByResetToken(ctx context.Context, digest string, now time.Time) (*models.User, error)
	ResetPassword(ctx context.Context, id string, passwordHash string) error
	ListUpdatedSince(ctx context.Context, since time.Time) ([]*models.User, error)
}
