package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/plantapi/internal/common"
	"github.com/dmitrijs2005/plantapi/internal/cryptox"
	"github.com/dmitrijs2005/plantapi/internal/dbx"
	"github.com/dmitrijs2005/plantapi/internal/logging"
	"github.com/dmitrijs2005/plantapi/internal/server/auth"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	usersrepo "github.com/dmitrijs2005/plantapi/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memUsers is an in-memory credential store honouring the repository
// contract (unique username/email, COALESCE-style profile updates).
type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	err   error
	calls int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}}
}

func (m *memUsers) clone(u *models.User) *models.User {
	c := *u
	if u.ResetPasswordExpire != nil {
		t := *u.ResetPasswordExpire
		c.ResetPasswordExpire = &t
	}
	return &c
}

func (m *memUsers) enter() error {
	m.calls++
	return m.err
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	for _, existing := range m.byID {
		if existing.UserName == u.UserName || existing.Email == u.Email {
			return nil, common.ErrDuplicateIdentity
		}
	}
	c := m.clone(u)
	c.ID = uuid.NewString()
	c.RegistrationDate = time.Now()
	c.UpdatedAt = c.RegistrationDate
	m.byID[c.ID] = c
	return m.clone(c), nil
}

func (m *memUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	for _, u := range m.byID {
		if u.UserName == login {
			return m.clone(u), nil
		}
	}
	if u, ok := m.byID[login]; ok {
		return m.clone(u), nil
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	if u, ok := m.byID[id]; ok {
		return m.clone(u), nil
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	for _, u := range m.byID {
		if u.Email == email {
			return m.clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if upd.Email != nil {
		for _, other := range m.byID {
			if other.ID != id && other.Email == *upd.Email {
				return nil, common.ErrDuplicateIdentity
			}
		}
		u.Email = *upd.Email
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.FirstName, upd.FirstName)
	set(&u.LastName, upd.LastName)
	set(&u.LanguagePreference, upd.LanguagePreference)
	set(&u.VoicePreference, upd.VoicePreference)
	set(&u.ImageGenerationStyle, upd.ImageGenerationStyle)
	u.UpdatedAt = time.Now()
	return m.clone(u), nil
}

func (m *memUsers) SetResetToken(ctx context.Context, id, digest string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return err
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.ResetPasswordToken = digest
	u.ResetPasswordExpire = &expires
	return nil
}

func (m *memUsers) ClearResetToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return err
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	return nil
}

func (m *memUsers) FindByResetToken(ctx context.Context, digest string, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	for _, u := range m.byID {
		if u.ResetPasswordToken == digest && u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now) {
			return m.clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) ResetPassword(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return err
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (m *memUsers) ListUpdatedSince(ctx context.Context, since time.Time) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	var out []*models.User
	for _, u := range m.byID {
		if u.UpdatedAt.After(since) {
			out = append(out, m.clone(u))
		}
	}
	return out, nil
}

func (m *memUsers) raw(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clone(m.byID[id])
}

type fakeRepoManager struct {
	users *memUsers
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return f.users }

type revokeCall struct {
	jti string
	ttl time.Duration
}

type fakeLedger struct {
	mu      sync.Mutex
	revoked map[string]bool
	calls   []revokeCall
	err     error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{revoked: map[string]bool{}}
}

func (l *fakeLedger) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.revoked[jti] = true
	l.calls = append(l.calls, revokeCall{jti: jti, ttl: ttl})
	return nil
}

func (l *fakeLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	return l.revoked[jti], nil
}

type fakeNotifier struct {
	to, link string
	err      error
	calls    int
}

func (n *fakeNotifier) SendPasswordReset(ctx context.Context, to, link string) error {
	n.calls++
	n.to, n.link = to, link
	return n.err
}

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...any) {}
func (noopLogger) Info(context.Context, string, ...any)  {}
func (noopLogger) Warn(context.Context, string, ...any)  {}
func (noopLogger) Error(context.Context, string, ...any) {}
func (l noopLogger) With(...any) logging.Logger          { return l }

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
	testAccessTTL     = 15 * time.Minute
	testRefreshTTL    = 24 * time.Hour
)

// fixture wires the services over in-memory collaborators and a sqlmock
// handle that only sees transaction boundaries.
type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	users    *memUsers
	ledger   *fakeLedger
	notifier *fakeNotifier
	hasher   *cryptox.Hasher
	issuer   *auth.Issuer
	rm       *fakeRepoManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := newMemUsers()
	return &fixture{
		db:       db,
		mock:     mock,
		users:    users,
		ledger:   newFakeLedger(),
		notifier: &fakeNotifier{},
		hasher:   cryptox.NewHasher(bcrypt.MinCost),
		issuer:   auth.NewIssuer(testAccessSecret, testRefreshSecret, testAccessTTL, testRefreshTTL),
		rm:       &fakeRepoManager{users: users},
	}
}

func (f *fixture) userService(checkRevocation bool) *UserService {
	return NewUserService(f.db, f.rm, f.hasher, f.issuer, f.ledger, noopLogger{}, checkRevocation)
}

func (f *fixture) authService() *AuthService {
	return NewAuthService(f.db, f.rm, f.issuer, f.ledger, ServiceSecrets{
		SyncTokenSecret:    "sync-token-secret",
		SyncServiceSecret:  "sync-service-secret",
		ChatbotTokenSecret: "chatbot-token-secret",
		ChatbotSubject:     "chatbot_microservice",
	})
}

func (f *fixture) resetService() *PasswordResetService {
	return NewPasswordResetService(f.db, f.rm, f.hasher, f.issuer, f.notifier, noopLogger{}, "https://plants.example/")
}

func tokenFromLink(link string) string {
	return link[strings.LastIndex(link, "/")+1:]
}
