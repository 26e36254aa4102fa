package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/propoza/internal/account/domain"
	"github.com/smallbiznis/propoza/internal/actorcontext"
	"github.com/smallbiznis/propoza/internal/auth"
	"github.com/smallbiznis/propoza/pkg/db"
	"github.com/smallbiznis/propoza/pkg/db/option"
	"github.com/smallbiznis/propoza/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	users repository.Repository[accountdomain.User]
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		users: repository.ProvideStore[accountdomain.User](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req accountdomain.CreateUserRequest) (accountdomain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return accountdomain.User{}, accountdomain.ErrInvalidUsername
	}
	if strings.TrimSpace(req.Password) == "" {
		return accountdomain.User{}, accountdomain.ErrInvalidPassword
	}
	switch req.Role {
	case actorcontext.RoleStaff, actorcontext.RoleCustomer:
	default:
		return accountdomain.User{}, accountdomain.ErrInvalidRole
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return accountdomain.User{}, err
	}

	now := time.Now().UTC()
	user := accountdomain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return accountdomain.User{}, accountdomain.ErrUserExists
		}
		return accountdomain.User{}, err
	}

	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (accountdomain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return accountdomain.User{}, accountdomain.ErrInvalidCredentials
	}

	user, err := s.users.FindOne(ctx, &accountdomain.User{Username: username})
	if err != nil {
		return accountdomain.User{}, err
	}
	if user == nil || !user.IsActive {
		return accountdomain.User{}, accountdomain.ErrInvalidCredentials
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return accountdomain.User{}, accountdomain.ErrInvalidCredentials
	}

	return *user, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (accountdomain.User, error) {
	user, err := s.users.FindOne(ctx, &accountdomain.User{ID: id})
	if err != nil {
		return accountdomain.User{}, err
	}
	if user == nil {
		return accountdomain.User{}, accountdomain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]accountdomain.User, error) {
	return s.listByRole(ctx, actorcontext.RoleCustomer)
}

func (s *Service) ListStaff(ctx context.Context) ([]accountdomain.User, error) {
	return s.listByRole(ctx, actorcontext.RoleStaff)
}

func (s *Service) listByRole(ctx context.Context, role actorcontext.Role) ([]accountdomain.User, error) {
	items, err := s.users.Find(ctx, &accountdomain.User{Role: role, IsActive: true},
		option.WithOrderBy("username ASC"),
	)
	if err != nil {
		return nil, err
	}

	users := make([]accountdomain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}
	return users, nil
}
