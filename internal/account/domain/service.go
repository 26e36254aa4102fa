package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propoza/internal/actorcontext"
)

type CreateUserRequest struct {
	Username string
	Email    string
	Phone    string
	FullName string
	Role     actorcontext.Role
	Password string
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (User, error)
	Authenticate(ctx context.Context, username, password string) (User, error)
	GetByID(ctx context.Context, id snowflake.ID) (User, error)
	ListCustomers(ctx context.Context) ([]User, error)
	ListStaff(ctx context.Context) ([]User, error)
}

var (
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserExists         = errors.New("user_exists")
	ErrNotFound           = errors.New("not_found")
)
