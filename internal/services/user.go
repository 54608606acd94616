package services

import (
	"context"
	"errors"
	"strings"

	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(email))
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return types.User{}, ErrInvalidCredentials
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// AdminInput describes the account created or refreshed by EnsureAdmin.
type AdminInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// EnsureAdmin creates an admin account, or promotes and resets the
// password of an existing account with the same email. The bool reports
// whether a new account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, input AdminInput) (types.User, bool, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return types.User{}, false, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, false, err
	}

	existing, err := s.repo.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		existing.Name = input.Name
		existing.Role = types.RoleAdmin
		existing.PasswordHash = string(hashed)
		user, err := s.repo.Update(ctx, existing)
		return user, false, err
	case errors.Is(err, store.ErrNotFound):
		user, err := s.repo.Create(ctx, types.User{
			Email:        input.Email,
			Name:         input.Name,
			Role:         types.RoleAdmin,
			PasswordHash: string(hashed),
		})
		return user, true, err
	default:
		return types.User{}, false, err
	}
}
