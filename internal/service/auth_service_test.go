package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/repository"
)

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if _, ok := r.users[user.Username]; ok {
		return repository.ErrDuplicate
	}
	r.nextID++
	user.ID = r.nextID
	stored := *user
	r.users[user.Username] = &stored
	return nil
}

func TestRegisterThenLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)
	ctx := context.Background()

	if err := svc.Register(ctx, "alice", "right", model.UserRoleClient); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, err := svc.Login(ctx, "alice", "right")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.Role != model.UserRoleClient {
		t.Fatalf("expected role Client, got %q", user.Role)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)
	ctx := context.Background()

	if err := svc.Register(ctx, "alice", "pw-one", model.UserRoleClient); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	err := svc.Register(ctx, "alice", "pw-two", model.UserRoleAdmin)
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
		role     model.UserRole
	}{
		{"empty username", "", "secret", model.UserRoleClient},
		{"empty password", "alice", "", model.UserRoleClient},
		{"bad role", "alice", "secret", model.UserRole("Owner")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Register(ctx, tc.username, tc.password, tc.role)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)
	ctx := context.Background()

	if err := svc.Register(ctx, "alice", "right", model.UserRoleClient); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	if _, err := svc.Login(context.Background(), "ghost", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)
	ctx := context.Background()

	if err := svc.Register(ctx, "alice", "plaintext-secret", model.UserRoleClient); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	stored := repo.users["alice"]
	if stored.PasswordHash == "plaintext-secret" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("plaintext-secret")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}
