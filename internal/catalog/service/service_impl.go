package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propoza/internal/catalog/domain"
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
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	categories repository.Repository[domain.Category]
	services   repository.Repository[domain.Service]
}

func NewService(p Params) domain.CatalogService {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("catalog.service"),
		genID:      p.GenID,
		categories: repository.ProvideStore[domain.Category](p.DB),
		services:   repository.ProvideStore[domain.Service](p.DB),
	}
}

func (s *Service) GetService(ctx context.Context, id snowflake.ID) (domain.Service, error) {
	svc, err := s.services.FindOne(ctx, &domain.Service{ID: id})
	if err != nil {
		return domain.Service{}, err
	}
	if svc == nil {
		return domain.Service{}, domain.ErrNotFound
	}
	return *svc, nil
}

func (s *Service) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	query := s.db.WithContext(ctx).Model(&domain.Category{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var categories []domain.Category
	if err := query.Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Service) ListServicesByCategory(ctx context.Context, categoryID snowflake.ID, activeOnly bool) ([]domain.Service, error) {
	category, err := s.categories.FindOne(ctx, &domain.Category{ID: categoryID})
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.ErrNotFound
	}

	query := s.db.WithContext(ctx).Model(&domain.Service{}).Where("category_id = ?", categoryID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var services []domain.Service
	if err := query.Order("sort_order ASC, name ASC").Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	category := domain.Category{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, &category); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id snowflake.ID, req domain.UpdateCategoryRequest) (domain.Category, error) {
	category, err := s.categories.FindOne(ctx, &domain.Category{ID: id})
	if err != nil {
		return domain.Category{}, err
	}
	if category == nil {
		return domain.Category{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Category{}, domain.ErrInvalidName
		}
		category.Name = name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	category.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		return domain.Category{}, err
	}
	return *category, nil
}

func (s *Service) CreateService(ctx context.Context, req domain.CreateServiceRequest) (domain.Service, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Service{}, domain.ErrInvalidName
	}

	category, err := s.categories.FindOne(ctx, &domain.Category{ID: req.CategoryID})
	if err != nil {
		return domain.Service{}, err
	}
	if category == nil {
		return domain.Service{}, domain.ErrNotFound
	}

	now := time.Now().UTC()
	svc := domain.Service{
		ID:          s.genID.Generate(),
		CategoryID:  req.CategoryID,
		Name:        name,
		Description: req.Description,
		Unit:        req.Unit,
		BasePrice:   req.BasePrice,
		Repeatable:  req.Repeatable,
		SortOrder:   req.SortOrder,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.services.Create(ctx, &svc); err != nil {
		return domain.Service{}, err
	}
	return svc, nil
}

func (s *Service) UpdateService(ctx context.Context, id snowflake.ID, req domain.UpdateServiceRequest) (domain.Service, error) {
	svc, err := s.services.FindOne(ctx, &domain.Service{ID: id})
	if err != nil {
		return domain.Service{}, err
	}
	if svc == nil {
		return domain.Service{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Service{}, domain.ErrInvalidName
		}
		svc.Name = name
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.Unit != nil {
		svc.Unit = *req.Unit
	}
	if req.BasePrice != nil {
		svc.BasePrice = req.BasePrice
	}
	if req.Repeatable != nil {
		svc.Repeatable = *req.Repeatable
	}
	if req.SortOrder != nil {
		svc.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}
	svc.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(svc).Error; err != nil {
		return domain.Service{}, err
	}
	return *svc, nil
}

func (s *Service) DeleteService(ctx context.Context, id snowflake.ID) error {
	svc, err := s.services.FindOne(ctx, &domain.Service{ID: id})
	if err != nil {
		return err
	}
	if svc == nil {
		return domain.ErrNotFound
	}

	var refs int64
	if err := s.db.WithContext(ctx).Table("proposal_items").
		Where("service_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return domain.ErrServiceInUse
	}

	return s.services.Delete(ctx, id.String())
}
