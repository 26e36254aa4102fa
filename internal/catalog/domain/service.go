package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidName  = errors.New("invalid_name")
	ErrServiceInUse = errors.New("service_in_use")
)

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

type CreateServiceRequest struct {
	CategoryID  snowflake.ID `json:"category_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Unit        string       `json:"unit"`
	BasePrice   *int64       `json:"base_price"`
	Repeatable  bool         `json:"repeatable"`
	SortOrder   int          `json:"sort_order"`
}

type UpdateServiceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Unit        *string `json:"unit"`
	BasePrice   *int64  `json:"base_price"`
	Repeatable  *bool   `json:"repeatable"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

type CatalogService interface {
	GetService(ctx context.Context, id snowflake.ID) (Service, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)
	ListServicesByCategory(ctx context.Context, categoryID snowflake.ID, activeOnly bool) ([]Service, error)

	CreateCategory(ctx context.Context, req CreateCategoryRequest) (Category, error)
	UpdateCategory(ctx context.Context, id snowflake.ID, req UpdateCategoryRequest) (Category, error)
	CreateService(ctx context.Context, req CreateServiceRequest) (Service, error)
	UpdateService(ctx context.Context, id snowflake.ID, req UpdateServiceRequest) (Service, error)
	DeleteService(ctx context.Context, id snowflake.ID) error
}
