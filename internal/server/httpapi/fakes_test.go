package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/plantapi/internal/logging"
	"github.com/dmitrijs2005/plantapi/internal/server/auth"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/dmitrijs2005/plantapi/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

var testPair = &auth.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token", JTI: "jti-1"}

type fakeAuth struct {
	id      *models.Identity
	err     error
	syncErr error
	chatErr error
	token   string
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*models.Identity, error) {
	f.token = token
	return f.id, f.err
}

func (f *fakeAuth) AuthenticateSync(string) error    { return f.syncErr }
func (f *fakeAuth) AuthenticateChatbot(string) error { return f.chatErr }

type fakeUsers struct {
	err       error
	user      *models.User
	users     []*models.User
	loggedOut *models.Identity
	since     time.Time
	update    models.ProfileUpdate
	register  services.RegisterInput
	login     [2]string
}

func (f *fakeUsers) Register(_ context.Context, in services.RegisterInput) (*auth.TokenPair, *models.User, error) {
	f.register = in
	if f.err != nil {
		return nil, nil, f.err
	}
	return testPair, f.user, nil
}

func (f *fakeUsers) Login(_ context.Context, login, password string) (*auth.TokenPair, error) {
	f.login = [2]string{login, password}
	if f.err != nil {
		return nil, f.err
	}
	return testPair, nil
}

func (f *fakeUsers) Refresh(context.Context, string) (*auth.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return testPair, nil
}

func (f *fakeUsers) Logout(_ context.Context, id *models.Identity) error {
	f.loggedOut = id
	return f.err
}

func (f *fakeUsers) Profile(context.Context, string) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeUsers) UpdateProfile(_ context.Context, _ string, upd models.ProfileUpdate) (*models.User, error) {
	f.update = upd
	return f.user, f.err
}

func (f *fakeUsers) GetUser(context.Context, string) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeUsers) SyncUsers(_ context.Context, since time.Time) ([]*models.User, error) {
	f.since = since
	return f.users, f.err
}

type fakeResets struct {
	err      error
	email    string
	token    string
	password string
}

func (f *fakeResets) RequestReset(_ context.Context, email string) error {
	f.email = email
	return f.err
}

func (f *fakeResets) CompleteReset(_ context.Context, token, password string) (*auth.TokenPair, error) {
	f.token, f.password = token, password
	if f.err != nil {
		return nil, f.err
	}
	return testPair, nil
}

type fakeImages struct {
	err   error
	names []string
}

func (f *fakeImages) Upload(_ context.Context, files []services.ImageFile) ([]services.UploadedImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]services.UploadedImage, 0, len(files))
	for _, file := range files {
		f.names = append(f.names, file.Filename)
		out = append(out, services.UploadedImage{URL: "http://s3/plant-images/" + file.Filename, Caption: file.Filename})
	}
	return out, nil
}

type fixture struct {
	auth    *fakeAuth
	users   *fakeUsers
	resets  *fakeResets
	images  *fakeImages
	metrics *Metrics
	router  *gin.Engine
}

func newFixture() *fixture {
	f := &fixture{
		auth:    &fakeAuth{},
		users:   &fakeUsers{},
		resets:  &fakeResets{},
		images:  &fakeImages{},
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	f.router = NewRouter(RouterDeps{
		Handler:       NewHandler(f.users, f.resets, f.images, nopLogger{}),
		Authenticator: f.auth,
		Metrics:       f.metrics,
		Logger:        nopLogger{},
		StoreTimeout:  time.Second,
	})
	return f
}

func (f *fixture) signedIn(role models.Role) {
	f.auth.id = &models.Identity{
		UserID:    "0b6f7f4e-9a53-4c3e-9a43-2f8f5f1d2a11",
		Role:      role,
		JTI:       "jti-1",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}
