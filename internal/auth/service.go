package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/messagely/server/internal/apperr"
	"github.com/messagely/server/internal/model"
	"github.com/messagely/server/internal/repo"
)

// RegisterParams carries the registration fields.
type RegisterParams struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// AuthService orchestrates registration and login.
type AuthService struct {
	userRepo   repo.UserRepo
	jwtService *JWTService
	hasher     *PasswordHasher
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repo.UserRepo, jwtService *JWTService, hasher *PasswordHasher) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		hasher:     hasher,
	}
}

// Register validates the params, hashes the password, inserts the user, and
// returns it with a freshly signed token. The insert's primary-key
// constraint is the only duplicate guard; a racing second registration gets
// apperr.ErrDuplicateUsername.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (model.User, string, error) {
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" || p.Password == "" {
		return model.User{}, "", fmt.Errorf("username and password are required: %w", apperr.ErrValidation)
	}

	hash, err := s.hasher.Hash(ctx, p.Password)
	if err != nil {
		return model.User{}, "", fmt.Errorf("register: %w", err)
	}

	user, err := s.userRepo.Create(ctx, model.User{
		Username:     p.Username,
		PasswordHash: hash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Phone:        p.Phone,
	})
	if err != nil {
		return model.User{}, "", err
	}

	token, err := s.jwtService.SignToken(user.Username)
	if err != nil {
		return model.User{}, "", fmt.Errorf("register: %w", err)
	}
	return user, token, nil
}

// Login verifies the credentials, records the login time, and returns the
// user with a signed token. Unknown usernames and wrong passwords both come
// back as apperr.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (model.User, string, error) {
	user, err := s.userRepo.CredentialByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return model.User{}, "", apperr.ErrInvalidCredentials
		}
		return model.User{}, "", err
	}

	ok, err := s.hasher.Compare(ctx, user.PasswordHash, password)
	if err != nil {
		return model.User{}, "", fmt.Errorf("login: %w", err)
	}
	if !ok {
		return model.User{}, "", apperr.ErrInvalidCredentials
	}

	user, err = s.userRepo.TouchLogin(ctx, username)
	if err != nil {
		return model.User{}, "", err
	}

	token, err := s.jwtService.SignToken(user.Username)
	if err != nil {
		return model.User{}, "", fmt.Errorf("login: %w", err)
	}
	return user, token, nil
}
