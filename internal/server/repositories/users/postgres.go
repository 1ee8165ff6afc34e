package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/plantapi/internal/common"
	"github.com/dmitrijs2005/plantapi/internal/dbx"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, password_hash, role, first_name, last_name,
		 language_preference, voice_preference, image_generation_style,
		 registration_date, updated_at, reset_password_token, reset_password_expire`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user   models.User
		role   string
		token  sql.NullString
		expire sql.NullTime
	)

	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.PasswordHash, &role,
		&user.FirstName, &user.LastName, &user.LanguagePreference, &user.VoicePreference,
		&user.ImageGenerationStyle, &user.RegistrationDate, &user.UpdatedAt, &token, &expire)
	if err != nil {
		return nil, err
	}

	user.Role, err = models.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s: %v", common.ErrorInternal, user.ID, err)
	}
	if token.Valid {
		user.ResetPasswordToken = token.String
	}
	if expire.Valid {
		t := expire.Time
		user.ResetPasswordExpire = &t
	}
	return &user, nil
}

func wrapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrDuplicateIdentity
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, password_hash, role, first_name, last_name,
		 language_preference, voice_preference, image_generation_style)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.PasswordHash, string(user.Role), user.FirstName, user.LastName,
		user.LanguagePreference, user.VoicePreference, user.ImageGenerationStyle)

	created, err := scanUser(row)
	if err != nil {
		return nil, wrapErr(err)
	}
	return created, nil
}

// GetUserByLogin looks a user up by username, or by id when login is a
// UUID. A username match wins over an id match.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	if _, err := uuid.Parse(login); err == nil {
		query :=
			`SELECT ` + userColumns + ` FROM users
			 WHERE username = $1 OR id = $2::uuid
			 ORDER BY (username = $1) DESC
			 LIMIT 1`
		return r.getOne(ctx, query, login, login)
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, login)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrapErr(err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of upd. The password hash is
// never part of the statement.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`UPDATE users SET
		 email = COALESCE($2, email),
		 first_name = COALESCE($3, first_name),
		 last_name = COALESCE($4, last_name),
		 language_preference = COALESCE($5, language_preference),
		 voice_preference = COALESCE($6, voice_preference),
		 image_generation_style = COALESCE($7, image_generation_style),
		 updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	return r.getOne(ctx, query, id, upd.Email, upd.FirstName, upd.LastName,
		upd.LanguagePreference, upd.VoicePreference, upd.ImageGenerationStyle)
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id string, digest string, expires time.Time) error {
	query :=
		`UPDATE users SET reset_password_token = $2, reset_password_expire = $3
		 WHERE id = $1`

	return r.execOne(ctx, query, id, digest, expires)
}

func (r *PostgresRepository) ClearResetToken(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET reset_password_token = NULL, reset_password_expire = NULL
		 WHERE id = $1`

	return r.execOne(ctx, query, id)
}

// FindByResetToken returns the user holding an unexpired reset digest. The
// row is locked when called inside a transaction.
func (r *PostgresRepository) FindByResetToken(ctx context.Context, digest string, now time.Time) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE reset_password_token = $1 AND reset_password_expire > $2
		 FOR UPDATE`

	return r.getOne(ctx, query, digest, now)
}

// ResetPassword stores a new password hash and clears the reset fields.
func (r *PostgresRepository) ResetPassword(ctx context.Context, id string, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2,
		 reset_password_token = NULL, reset_password_expire = NULL, updated_at = now()
		 WHERE id = $1`

	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) ListUpdatedSince(ctx context.Context, since time.Time) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE updated_at > $1 ORDER BY updated_at`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, wrapErr(err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return result, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
