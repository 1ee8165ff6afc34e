package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/plantapi/internal/common"
	"github.com/dmitrijs2005/plantapi/internal/server/auth"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/dmitrijs2005/plantapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/plantapi/internal/server/revocation"
)

// ServiceSecrets configures the two service trust domains.
type ServiceSecrets struct {
	SyncTokenSecret    string
	SyncServiceSecret  string
	ChatbotTokenSecret string
	ChatbotSubject     string
}

// AuthService verifies bearer tokens for the end-user, sync and chatbot
// trust domains.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	ledger      revocation.Ledger
	secrets     ServiceSecrets
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, ledger revocation.Ledger, secrets ServiceSecrets) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		ledger:      ledger,
		secrets:     secrets,
	}
}

// Authenticate resolves an end-user access token into an Identity. A ledger
// failure is returned as common.ErrStoreUnavailable, never as "not revoked".
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := s.issuer.ParseAccess(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, common.ErrTokenBlacklisted
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return &models.Identity{
		UserID:    user.ID,
		Role:      user.Role,
		JTI:       claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// AuthenticateSync accepts a token signed with the sync secret whose
// "secret" claim equals the configured service secret.
func (s *AuthService) AuthenticateSync(token string) error {
	claims, err := auth.Verify(token, []byte(s.secrets.SyncTokenSecret))
	if err != nil {
		return err
	}
	if s.secrets.SyncServiceSecret == "" ||
		subtle.ConstantTimeCompare([]byte(claims.Secret), []byte(s.secrets.SyncServiceSecret)) != 1 {
		return common.ErrForbidden
	}
	return nil
}

// AuthenticateChatbot accepts a token signed with the chatbot secret whose
// subject is the configured service identifier.
func (s *AuthService) AuthenticateChatbot(token string) error {
	claims, err := auth.Verify(token, []byte(s.secrets.ChatbotTokenSecret))
	if err != nil {
		return err
	}
	if s.secrets.ChatbotSubject == "" || claims.Subject != s.secrets.ChatbotSubject {
		return common.ErrForbidden
	}
	return nil
}
