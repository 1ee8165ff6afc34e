package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/plantapi/internal/common"
	"github.com/dmitrijs2005/plantapi/internal/cryptox"
	"github.com/dmitrijs2005/plantapi/internal/dbx"
	"github.com/dmitrijs2005/plantapi/internal/logging"
	"github.com/dmitrijs2005/plantapi/internal/server/auth"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/dmitrijs2005/plantapi/internal/server/repositories/repomanager"
)

const resetTokenBytes = 20

// PasswordResetService runs the forgot-password / reset-password flow.
// Only the sha256 digest of a reset token is persisted.
type PasswordResetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.Hasher
	issuer      *auth.Issuer
	notifier    Notifier
	logger      logging.Logger
	baseURL     string
	now         func() time.Time
	newToken    func() (string, error)
}

func NewPasswordResetService(db *sql.DB, m repomanager.RepositoryManager, hasher *cryptox.Hasher, issuer *auth.Issuer,
	notifier Notifier, logger logging.Logger, baseURL string) *PasswordResetService {
	return &PasswordResetService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		issuer:      issuer,
		notifier:    notifier,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         time.Now,
		newToken:    func() (string, error) { return common.MakeRandHexString(resetTokenBytes) },
	}
}

// ResetLink is the URL mailed to the user.
func (s *PasswordResetService) ResetLink(token string) string {
	return s.baseURL + "/api/auth/passwordreset/" + token
}

// RequestReset issues a reset token for email. Unknown addresses succeed
// without side effects. If the mail cannot be delivered the stored digest is
// cleared again and common.ErrDeliveryFailed is returned.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	token, err := s.newToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expires := s.now().Add(common.ResetTokenValidity)
	if err := repo.SetResetToken(ctx, user.ID, common.HashToken(token), expires); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, s.ResetLink(token)); err != nil {
		if clearErr := repo.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error(ctx, "failed to clear reset token after delivery failure",
				"user_id", user.ID, "error", clearErr.Error())
		}
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
	}

	s.logger.Info(ctx, "password reset link sent", "user_id", user.ID)
	return nil
}

// CompleteReset sets newPassword for the holder of an unexpired rawToken and
// issues a fresh pair. Lookup and update share one transaction.
func (s *PasswordResetService) CompleteReset(ctx context.Context, rawToken, newPassword string) (*auth.TokenPair, error) {
	if rawToken == "" {
		return nil, common.ErrInvalidOrExpiredResetToken
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	digest := common.HashToken(rawToken)

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.FindByResetToken(ctx, digest, s.now())
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidOrExpiredResetToken
			}
			return err
		}
		if err := repo.ResetPassword(ctx, u.ID, hash); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "password reset completed", "user_id", user.ID)
	return s.issuer.Issue(user.ID, user.Role)
}
