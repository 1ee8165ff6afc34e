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
	"github.com/dmitrijs2005/plantapi/internal/logging"
	"github.com/dmitrijs2005/plantapi/internal/server/auth"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/dmitrijs2005/plantapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/plantapi/internal/server/revocation"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterInput carries a new account. Role defaults to models.RoleUser and
// LanguagePreference to models.DefaultLanguage.
type RegisterInput struct {
	Username             string
	Email                string
	Password             string
	Role                 models.Role
	FirstName            string
	LastName             string
	LanguagePreference   string
	VoicePreference      string
	ImageGenerationStyle string
}

// UserService handles registration, login, token refresh, logout and the
// profile read/update paths.
type UserService struct {
	db                      *sql.DB
	repomanager             repomanager.RepositoryManager
	hasher                  *cryptox.Hasher
	issuer                  *auth.Issuer
	ledger                  revocation.Ledger
	logger                  logging.Logger
	refreshChecksRevocation bool
	now                     func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *cryptox.Hasher, issuer *auth.Issuer,
	ledger revocation.Ledger, logger logging.Logger, refreshChecksRevocation bool) *UserService {
	return &UserService{
		db:                      db,
		repomanager:             m,
		hasher:                  hasher,
		issuer:                  issuer,
		ledger:                  ledger,
		logger:                  logger,
		refreshChecksRevocation: refreshChecksRevocation,
		now:                     time.Now,
	}
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: invalid email %q", common.ErrValidation, email)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < common.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, common.MinPasswordLength)
	}
	return nil
}

// Register creates the user with a freshly hashed password and logs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*auth.TokenPair, *models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, nil, fmt.Errorf("%w: missing required fields", common.ErrValidation)
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, nil, err
	}

	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, in.Role)
	}
	if in.LanguagePreference == "" {
		in.LanguagePreference = models.DefaultLanguage
	}
	if !models.IsLanguage(in.LanguagePreference) {
		return nil, nil, fmt.Errorf("%w: unsupported language %q", common.ErrValidation, in.LanguagePreference)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:             in.Username,
		Email:                in.Email,
		PasswordHash:         hash,
		Role:                 in.Role,
		FirstName:            in.FirstName,
		LastName:             in.LastName,
		LanguagePreference:   in.LanguagePreference,
		VoicePreference:      in.VoicePreference,
		ImageGenerationStyle: in.ImageGenerationStyle,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	pair, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}
	return pair, user.Public(), nil
}

// VerifyPassword reports whether plaintext matches the stored hash.
func (s *UserService) VerifyPassword(user *models.User, plaintext string) bool {
	if user == nil {
		return s.hasher.CompareDummy(plaintext)
	}
	return s.hasher.Compare(user.PasswordHash, plaintext)
}

// Login verifies the credentials and issues a new pair. Unknown users and
// wrong passwords both yield common.ErrInvalidCredentials after one bcrypt
// comparison.
func (s *UserService) Login(ctx context.Context, login, password string) (*auth.TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, login)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.VerifyPassword(user, password) {
		return nil, common.ErrInvalidCredentials
	}
	return s.issuer.Issue(user.ID, user.Role)
}

// Refresh exchanges a valid refresh token for a new pair with a new jti.
// The previous pair is left untouched.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	if s.refreshChecksRevocation {
		revoked, err := s.ledger.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, common.ErrTokenBlacklisted
		}
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	return s.issuer.Issue(user.ID, user.Role)
}

// Logout revokes the caller's jti for the remaining lifetime of the
// refresh token issued alongside it.
func (s *UserService) Logout(ctx context.Context, id *models.Identity) error {
	if id == nil || id.JTI == "" {
		return common.ErrInvalidToken
	}
	ttl := s.revocationTTL(id.ExpiresAt)
	if err := s.ledger.Revoke(ctx, id.JTI, ttl); err != nil {
		return err
	}
	s.logger.Info(ctx, "token revoked", "user_id", id.UserID, "jti", id.JTI, "ttl", ttl.String())
	return nil
}

// revocationTTL is the time left on the refresh token of the pair whose
// access token expires at accessExpiry.
func (s *UserService) revocationTTL(accessExpiry time.Time) time.Duration {
	refreshExpiry := accessExpiry.Add(s.issuer.RefreshValidity() - s.issuer.AccessValidity())
	return refreshExpiry.Sub(s.now())
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// UpdateProfile applies the allow-listed fields of upd.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	if upd.Email != nil {
		trimmed := strings.TrimSpace(*upd.Email)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: email must not be empty", common.ErrValidation)
		}
		if err := validateEmail(trimmed); err != nil {
			return nil, err
		}
		upd.Email = &trimmed
	}
	if upd.LanguagePreference != nil && !models.IsLanguage(*upd.LanguagePreference) {
		return nil, fmt.Errorf("%w: unsupported language %q", common.ErrValidation, *upd.LanguagePreference)
	}
	if upd.Empty() {
		return s.Profile(ctx, userID)
	}

	user, err := s.repomanager.Users(s.db).UpdateProfile(ctx, userID, upd)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// SetPassword hashes plaintext and stores it, invalidating any pending
// reset token.
func (s *UserService) SetPassword(ctx context.Context, userID, plaintext string) error {
	if err := validatePassword(plaintext); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	return s.repomanager.Users(s.db).ResetPassword(ctx, userID, hash)
}

// GetUser returns the public record for the chatbot domain.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.Profile(ctx, userID)
}

// SyncUsers lists users changed after since, for the sync domain.
func (s *UserService) SyncUsers(ctx context.Context, since time.Time) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.db).ListUpdatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	result := make([]*models.User, 0, len(users))
	for _, u := range users {
		result = append(result, u.Public())
	}
	return result, nil
}
