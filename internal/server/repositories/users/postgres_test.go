package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/plantapi/internal/common"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "0b6f7f4e-9a53-4c3e-9a43-2f8f5f1d2a11"

var columns = []string{
	"id", "username", "email", "password_hash", "role", "first_name", "last_name",
	"language_preference", "voice_preference", "image_generation_style",
	"registration_date", "updated_at", "reset_password_token", "reset_password_expire",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func aliceRow(ts time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(columns).AddRow(
		testID, "alice", "alice@example.com", "$2a$10$hash", "user", "Alice", "",
		"English", "", "", ts, ts, nil, nil)
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\s*\(username,\s*email,\s*password_hash,\s*role,.*RETURNING\s+id,`).
		WithArgs("alice", "alice@example.com", "$2a$10$hash", "user", "Alice", "", "English", "", "").
		WillReturnRows(aliceRow(ts))

	u := &models.User{
		UserName: "alice", Email: "alice@example.com", PasswordHash: "$2a$10$hash",
		Role: models.RoleUser, FirstName: "Alice", LanguagePreference: "English",
	}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, testID, got.ID)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.Equal(t, ts, got.RegistrationDate)
	assert.Nil(t, got.ResetPasswordExpire)
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", Role: models.RoleUser})
	assert.ErrorIs(t, err, common.ErrDuplicateIdentity)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", Role: models.RoleUser})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestGetUserByLogin_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`).
		WithArgs("alice").
		WillReturnRows(aliceRow(time.Now()))

	got, err := repo.GetUserByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)
}

func TestGetByID_UnknownStoredRole(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	ts := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			testID, "alice", "alice@example.com", "$2a$10$hash", "superuser", "", "",
			"English", "", "", ts, ts, nil, nil))

	got, err := repo.GetByID(context.Background(), testID)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestGetUserByLogin_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*WHERE\s+username\s*=\s*\$1$`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByLogin(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetUserByLogin_UUIDAlsoMatchesID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)WHERE\s+username\s*=\s*\$1\s+OR\s+id\s*=\s*\$2::uuid`).
		WithArgs(testID, testID).
		WillReturnRows(aliceRow(time.Now()))

	got, err := repo.GetUserByLogin(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, testID, got.ID)
}

func TestGetByID_MalformedSkipsQuery(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*WHERE\s+id\s*=\s*\$1$`).
		WithArgs(testID).
		WillReturnRows(aliceRow(time.Now()))

	got, err := repo.GetByID(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, testID, got.ID)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*WHERE\s+email\s*=\s*\$1$`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateProfile_PassesOnlySetFields(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	lang := "French"

	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+email\s*=\s*COALESCE\(\$2,\s*email\).*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(testID, nil, nil, nil, "French", nil, nil).
		WillReturnRows(aliceRow(time.Now()))

	_, err := repo.UpdateProfile(context.Background(), testID, models.ProfileUpdate{LanguagePreference: &lang})
	require.NoError(t, err)
}

func TestUpdateProfile_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	email := "bob@example.com"

	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.UpdateProfile(context.Background(), testID, models.ProfileUpdate{Email: &email})
	assert.ErrorIs(t, err, common.ErrDuplicateIdentity)
}

func TestSetResetToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	exp := time.Now().Add(10 * time.Minute)

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+reset_password_token\s*=\s*\$2,\s*reset_password_expire\s*=\s*\$3`).
		WithArgs(testID, "digest", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetResetToken(context.Background(), testID, "digest", exp))
}

func TestClearResetToken_NoRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+reset_password_token\s*=\s*NULL`).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.ClearResetToken(context.Background(), testID), common.ErrorNotFound)
}

func TestFindByResetToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	exp := now.Add(5 * time.Minute)

	rows := sqlmock.NewRows(columns).AddRow(
		testID, "alice", "alice@example.com", "$2a$10$hash", "user", "", "",
		"English", "", "", now, now, "digest", exp)

	mock.ExpectQuery(`(?s)WHERE\s+reset_password_token\s*=\s*\$1\s+AND\s+reset_password_expire\s*>\s*\$2\s+FOR\s+UPDATE`).
		WithArgs("digest", now).
		WillReturnRows(rows)

	got, err := repo.FindByResetToken(context.Background(), "digest", now)
	require.NoError(t, err)
	assert.Equal(t, "digest", got.ResetPasswordToken)
	require.NotNil(t, got.ResetPasswordExpire)
	assert.True(t, got.ResetPasswordExpire.Equal(exp))
}

func TestResetPassword(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*reset_password_token\s*=\s*NULL`).
		WithArgs(testID, "$2a$10$new").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ResetPassword(context.Background(), testID, "$2a$10$new"))
}

func TestListUpdatedSince(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := since.Add(time.Hour)

	rows := aliceRow(ts).AddRow(
		"5d1c8f0a-2b7e-4f43-8d1e-3c6a9b0e7f22", "bob", "bob@example.com", "$2a$10$x", "cms", "", "",
		"Yoruba", "", "", ts, ts, nil, nil)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*WHERE\s+updated_at\s*>\s*\$1\s+ORDER\s+BY\s+updated_at$`).
		WithArgs(since).
		WillReturnRows(rows)

	got, err := repo.ListUpdatedSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.RoleCMS, got[1].Role)
}
