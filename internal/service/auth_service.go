package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/repository"
)

const bcryptCost = 12

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidInput       = errors.New("invalid input")
)

type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Register stores a new user with a bcrypt-hashed password. The
// check-then-insert pair is not transactional; a concurrent duplicate slips
// through to the unique index and is reported as ErrUsernameTaken either way.
func (s *AuthService) Register(ctx context.Context, username, password string, role model.UserRole) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || !role.Valid() {
		return ErrInvalidInput
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}

	err = s.userRepo.Create(ctx, &model.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         role,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrUsernameTaken
	}
	return err
}

// Login checks the credentials and returns the stored user. No token or
// server-side session is issued; callers identify themselves by raw user id
// on subsequent requests.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
