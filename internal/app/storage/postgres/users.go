package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

const userColumns = `id, email, name, role, auth_provider, auth_subject, stripe_customer_id, created_at, updated_at`

func (s *Store) UpsertIdentity(ctx context.Context, id user.Identity, promoteAdmin bool) (user.User, error) {
	role := user.RoleNone
	if promoteAdmin {
		role = user.RoleAdmin
	}

	var u user.User
	err := s.pool.Get(ctx, &u, `
		INSERT INTO users (email, name, role, auth_provider, auth_subject)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ((lower(email))) DO UPDATE
		SET name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE users.name END,
		    role = CASE WHEN EXCLUDED.role = 'admin' THEN 'admin' ELSE users.role END,
		    auth_provider = EXCLUDED.auth_provider,
		    auth_subject = CASE WHEN EXCLUDED.auth_subject <> '' THEN EXCLUDED.auth_subject ELSE users.auth_subject END,
		    updated_at = now()
		RETURNING `+userColumns,
		user.NormalizeEmail(id.Email), id.Name, role, id.Provider, id.Subject)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	var u user.User
	err := s.pool.Get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if isNoRows(err) {
		return user.User{}, apperrors.NewNotFoundError("user", strconv.FormatInt(id, 10))
	}
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := s.pool.Get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, user.NormalizeEmail(email))
	if isNoRows(err) {
		return user.User{}, apperrors.NewNotFoundError("user", email)
	}
	return u, err
}

func (s *Store) ApplyCheckout(ctx context.Context, userID int64, customerID string, promote bool) (user.User, error) {
	var u user.User
	err := s.pool.Get(ctx, &u, `
		UPDATE users
		SET stripe_customer_id = $2,
		    role = CASE WHEN $3::boolean THEN COALESCE(NULLIF(role, ''), 'user') ELSE role END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		userID, customerID, promote)
	if isNoRows(err) {
		return user.User{}, apperrors.NewNotFoundError("user", strconv.FormatInt(userID, 10))
	}
	return u, err
}

// --- SessionStore -----------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess user.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_sessions (token_hash, user_id, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5)
	`, sess.TokenHash, sess.UserID, sess.ExpiresAt, sess.IP, sess.UserAgent)
	return err
}

func (s *Store) GetSession(ctx context.Context, tokenHash string) (user.Session, error) {
	var sess user.Session
	err := s.pool.Get(ctx, &sess, `
		SELECT token_hash, user_id, expires_at, ip, user_agent, created_at
		FROM user_sessions
		WHERE token_hash = $1 AND expires_at > now()
	`, tokenHash)
	if isNoRows(err) {
		return user.Session{}, apperrors.NewNotFoundError("session", "")
	}
	return sess, err
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return s.pool.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, before)
}
