package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/messagely/server/internal/apperr"
	"github.com/messagely/server/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, user model.User) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	CredentialByUsername(ctx context.Context, username string) (model.User, error)
	TouchLogin(ctx context.Context, username string) (model.User, error)
	List(ctx context.Context) ([]model.UserSummary, error)
	Exists(ctx context.Context, username string) (bool, error)
	SummariesByUsernames(ctx context.Context, usernames []string) (map[string]model.UserSummary, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

// Create inserts a new user. The primary-key constraint is the sole
// uniqueness guard; a violation maps to apperr.ErrDuplicateUsername.
func (r *userRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `
		INSERT INTO users (username, password_hash, first_name, last_name, phone, joined_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING joined_at, last_login_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
	).Scan(&user.JoinedAt, &user.LastLoginAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("user %q: %w", user.Username, apperr.ErrDuplicateUsername)
		}
		return model.User{}, storeErr("create user", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// GetByUsername retrieves a user profile. The password hash is not loaded.
func (r *userRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	query := `
		SELECT username, first_name, last_name, phone, joined_at, last_login_at
		FROM users
		WHERE username = $1
	`
	var user model.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.JoinedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
		}
		return model.User{}, storeErr("query user", err)
	}
	return user, nil
}

// CredentialByUsername retrieves a user including the password hash, for
// the authentication path only.
func (r *userRepo) CredentialByUsername(ctx context.Context, username string) (model.User, error) {
	query := `
		SELECT username, password_hash, first_name, last_name, phone, joined_at, last_login_at
		FROM users
		WHERE username = $1
	`
	var user model.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.Username,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.JoinedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
		}
		return model.User{}, storeErr("query credential", err)
	}
	return user, nil
}

// TouchLogin sets last_login_at to now and returns the updated profile.
func (r *userRepo) TouchLogin(ctx context.Context, username string) (model.User, error) {
	query := `
		UPDATE users
		SET last_login_at = now()
		WHERE username = $1
		RETURNING username, first_name, last_name, phone, joined_at, last_login_at
	`
	var user model.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.JoinedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
		}
		return model.User{}, storeErr("touch login", err)
	}
	return user, nil
}

// List returns basic info on all users. Store order; no guarantee.
func (r *userRepo) List(ctx context.Context) ([]model.UserSummary, error) {
	query := `
		SELECT username, first_name, last_name, phone
		FROM users
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer rows.Close()

	var users []model.UserSummary
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.Username, &u.FirstName, &u.LastName, &u.Phone); err != nil {
			return nil, storeErr("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// Exists reports whether a username is registered. Fast path only; the
// insert constraint remains the uniqueness guard.
func (r *userRepo) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, storeErr("check user exists", err)
	}
	return exists, nil
}

// SummariesByUsernames resolves a set of usernames to summaries in one
// query, keyed by username. Unknown usernames are simply absent from the
// result.
func (r *userRepo) SummariesByUsernames(ctx context.Context, usernames []string) (map[string]model.UserSummary, error) {
	summaries := make(map[string]model.UserSummary, len(usernames))
	if len(usernames) == 0 {
		return summaries, nil
	}

	query := `
		SELECT username, first_name, last_name, phone
		FROM users
		WHERE username = ANY($1)
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(usernames))
	if err != nil {
		return nil, storeErr("batch query users", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.Username, &u.FirstName, &u.LastName, &u.Phone); err != nil {
			return nil, storeErr("scan user summary", err)
		}
		summaries[u.Username] = u
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("batch query users", err)
	}
	return summaries, nil
}
