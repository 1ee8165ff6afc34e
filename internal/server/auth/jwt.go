// Package auth issues and verifies the HS256 tokens of every trust domain.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/plantapi/internal/common"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the registered claims plus the custom ones used across the
// three trust domains. End-user tokens carry UserID and Role; sync tokens
// carry Secret.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id,omitempty"`
	Role   string `json:"role,omitempty"`
	Secret string `json:"secret,omitempty"`
}

// TokenPair is an access and a refresh token sharing one jti.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	JTI              string
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Issuer signs end-user token pairs. Access and refresh tokens use
// independent secrets and validities.
type Issuer struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
	now             func() time.Time
	newID           func() (uuid.UUID, error)
}

func NewIssuer(accessSecret, refreshSecret string, accessValidity, refreshValidity time.Duration) *Issuer {
	return &Issuer{
		accessSecret:    []byte(accessSecret),
		refreshSecret:   []byte(refreshSecret),
		accessValidity:  accessValidity,
		refreshValidity: refreshValidity,
		now:             time.Now,
		newID:           uuid.NewRandom,
	}
}

// AccessValidity is the lifetime of the access token in a pair.
func (i *Issuer) AccessValidity() time.Duration {
	return i.accessValidity
}

// RefreshValidity is the lifetime of the longest-lived token in a pair.
func (i *Issuer) RefreshValidity() time.Duration {
	return i.refreshValidity
}

// Issue signs a new pair for userID. Both tokens carry the same jti and iat.
func (i *Issuer) Issue(userID string, role models.Role) (*TokenPair, error) {
	id, err := i.newID()
	if err != nil {
		return nil, fmt.Errorf("generate jti: %w", err)
	}

	// JWT timestamps have second precision.
	now := i.now().Truncate(time.Second)
	pair := &TokenPair{
		JTI:              id.String(),
		IssuedAt:         now,
		AccessExpiresAt:  now.Add(i.accessValidity),
		RefreshExpiresAt: now.Add(i.refreshValidity),
	}

	claims := func(exp time.Time) Claims {
		return Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID,
				ID:        pair.JTI,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(exp),
			},
			UserID: userID,
			Role:   string(role),
		}
	}

	pair.AccessToken, err = Sign(claims(pair.AccessExpiresAt), i.accessSecret)
	if err != nil {
		return nil, err
	}
	pair.RefreshToken, err = Sign(claims(pair.RefreshExpiresAt), i.refreshSecret)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (i *Issuer) ParseAccess(token string) (*Claims, error) {
	return i.parseUserToken(token, i.accessSecret)
}

func (i *Issuer) ParseRefresh(token string) (*Claims, error) {
	return i.parseUserToken(token, i.refreshSecret)
}

func (i *Issuer) parseUserToken(token string, secret []byte) (*Claims, error) {
	claims, err := parse(token, secret, i.now, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing jti or subject", common.ErrInvalidToken)
	}
	// Every issued pair carries iat; revocation TTLs are derived from it.
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing iat", common.ErrInvalidToken)
	}
	return claims, nil
}

// Sign produces an HS256 token for claims.
func Sign(claims Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify checks an HS256 signature under secret and, when the token carries
// one, its expiry. Used for the service trust domains.
func Verify(token string, secret []byte) (*Claims, error) {
	return parse(token, secret, time.Now)
}

func parse(tokenString string, secret []byte, now func() time.Time, opts ...jwt.ParserOption) (*Claims, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: no verification secret", common.ErrInvalidToken)
	}

	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(now),
	)

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
